package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResubmitPolicy decides what happens when a user who already has a
// medical record submits the form again.
type ResubmitPolicy string

const (
	ResubmitCreate ResubmitPolicy = "create" // keep every submission, reads return the newest
	ResubmitUpsert ResubmitPolicy = "upsert" // overwrite the newest submission in place
	ResubmitReject ResubmitPolicy = "reject" // refuse with apperr.ErrRecordExists
)

func ParseResubmitPolicy(s string) (ResubmitPolicy, error) {
	switch p := ResubmitPolicy(s); p {
	case ResubmitCreate, ResubmitUpsert, ResubmitReject:
		return p, nil
	case "":
		return ResubmitCreate, nil
	default:
		return "", fmt.Errorf("unknown resubmit policy %q", s)
	}
}

// RecordInput is the medform as the client sends it. Every value is a
// string so that a bad number ends up as a field error instead of a
// binding failure. Category blocks are JSON objects encoded as strings.
// There is no owner field, the owner always comes from the session.
type RecordInput struct {
	Age              string `form:"age" validate:"required,numeric"`
	Height           string `form:"height" validate:"required,numeric"`
	Weight           string `form:"weight" validate:"required,numeric"`
	Gender           string `form:"gender" validate:"required"`
	BloodGroup       string `form:"bloodGroup" validate:"required"`
	EmergencyContact string `form:"emergencyContact" validate:"required"`

	Allergies      string `form:"allergies"`
	Medication     string `form:"medication"`
	MedicationList string `form:"medicationlist"`
	Surgeries      string `form:"surgeries"`

	// Also accepted in camel case, medicationlist wins when both are sent
	MedicationListAlias string `form:"medicationList"`

	FamilyHistory         string `form:"familyHistory" validate:"omitempty,json"`
	CurrentlyExperiencing string `form:"currentlyExperiencing" validate:"omitempty,json"`
	Immunizations         string `form:"immunizations" validate:"omitempty,json"`
	Lifestyle             string `form:"lifestyle" validate:"omitempty,json"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by the name the client used
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return v
}

// BuildRecord validates in and converts it into an unsaved record without
// an owner. Every offending field is reported in one *apperr.ValidationError.
func BuildRecord(in RecordInput) (*model.MedicalRecord, error) {
	in = trimInput(in)
	ve := apperr.NewValidationError()

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}

		for _, fe := range fieldErrs {
			ve.Add(fe.Field(), problemFor(fe.Tag()))
		}
	}

	rec := &model.MedicalRecord{
		Gender:           in.Gender,
		BloodGroup:       in.BloodGroup,
		EmergencyContact: in.EmergencyContact,
		Allergies:        in.Allergies,
		Medication:       in.Medication,
		MedicationList:   cmp.Or(in.MedicationList, in.MedicationListAlias),
		Surgeries:        in.Surgeries,
		Prescriptions:    model.StringSlice{},
	}

	rec.Age = parseNumber(ve, "age", in.Age)
	rec.Height = parseNumber(ve, "height", in.Height)
	rec.Weight = parseNumber(ve, "weight", in.Weight)

	decodeCategory(ve, "familyHistory", in.FamilyHistory, &rec.FamilyHistory)
	decodeCategory(ve, "currentlyExperiencing", in.CurrentlyExperiencing, &rec.CurrentlyExperiencing)
	decodeCategory(ve, "immunizations", in.Immunizations, &rec.Immunizations)
	decodeCategory(ve, "lifestyle", in.Lifestyle, &rec.Lifestyle)

	checkVitals(ve, rec)

	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	return rec, nil
}

func trimInput(in RecordInput) RecordInput {
	v := reflect.ValueOf(&in).Elem()
	for i := range v.NumField() {
		f := v.Field(i)
		f.SetString(strings.TrimSpace(f.String()))
	}

	return in
}

func problemFor(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "numeric":
		return "must be a number"
	case "json":
		return "must be a JSON object"
	default:
		return "is invalid"
	}
}

func parseNumber(ve *apperr.ValidationError, field, raw string) float64 {
	if raw == "" {
		return 0
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		ve.Add(field, "must be a number")
		return 0
	}

	return n
}

func decodeCategory(ve *apperr.ValidationError, field, raw string, dst any) {
	if raw == "" {
		return
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		ve.Add(field, "must be a JSON object of true/false flags")
	}
}

// checkVitals only reports fields that don't already carry a problem.
func checkVitals(ve *apperr.ValidationError, r *model.MedicalRecord) {
	if r.Age < 0 {
		ve.Add("age", "can't be negative")
	}
	if r.Height <= 0 {
		ve.Add("height", "must be positive")
	}
	if r.Weight <= 0 {
		ve.Add("weight", "must be positive")
	}
}

func validateRecord(r *model.MedicalRecord) error {
	ve := apperr.NewValidationError()

	if r.UserID == "" {
		ve.Add("user", "is required")
	}
	if strings.TrimSpace(r.Gender) == "" {
		ve.Add("gender", "is required")
	}
	if strings.TrimSpace(r.BloodGroup) == "" {
		ve.Add("bloodGroup", "is required")
	}
	if strings.TrimSpace(r.EmergencyContact) == "" {
		ve.Add("emergencyContact", "is required")
	}

	checkVitals(ve, r)

	return ve.OrNil()
}

type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Save persists rec for rec.UserID according to policy and fills in rec.ID.
// The owner of an existing row is never changed.
func (s *RecordStore) Save(ctx context.Context, rec *model.MedicalRecord, policy ResubmitPolicy) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	if rec.Prescriptions == nil {
		rec.Prescriptions = model.StringSlice{}
	}

	err := s.save(ctx, rec, policy)
	if policy == ResubmitUpsert && isUniqueViolation(err) {
		// Another first submission took the slot, this one now updates it
		err = s.save(ctx, rec, policy)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrRecordExists) {
			return err
		}
		if policy == ResubmitReject && isUniqueViolation(err) {
			return apperr.ErrRecordExists
		}

		return fmt.Errorf("failed to save medical record, %w: %w", apperr.ErrStorage, err)
	}

	return nil
}

func (s *RecordStore) save(ctx context.Context, rec *model.MedicalRecord, policy ResubmitPolicy) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch policy {
		case ResubmitCreate, "":
			rec.OwnerSlot = nil
			return tx.Omit(clause.Associations).Create(rec).Error

		case ResubmitUpsert:
			existing, err := latestFor(tx, rec.UserID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rec.ID = 0
				rec.OwnerSlot = &rec.UserID
				return tx.Omit(clause.Associations).Create(rec).Error
			}
			if err != nil {
				return err
			}

			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			rec.OwnerSlot = existing.OwnerSlot
			return tx.Omit(clause.Associations).Save(rec).Error

		case ResubmitReject:
			var n int64
			err := tx.Model(&model.MedicalRecord{}).Where("user_id = ?", rec.UserID).Count(&n).Error
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.ErrRecordExists
			}

			// The count only sees committed rows, the unique slot stops a
			// concurrent first submission
			rec.OwnerSlot = &rec.UserID
			return tx.Omit(clause.Associations).Create(rec).Error

		default:
			return fmt.Errorf("unknown resubmit policy %q", policy)
		}
	})
}

// Exists reports whether userID has submitted at least one record.
func (s *RecordStore) Exists(ctx context.Context, userID string) (bool, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&model.MedicalRecord{}).Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to count medical records, %w: %w", apperr.ErrStorage, err)
	}

	return n > 0, nil
}

// FindByUser returns the newest record of userID with its owner loaded.
func (s *RecordStore) FindByUser(ctx context.Context, userID string) (*model.MedicalRecord, error) {
	rec, err := latestFor(s.db.WithContext(ctx).Preload("User"), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to fetch medical record, %w: %w", apperr.ErrStorage, err)
	}

	return rec, nil
}

func latestFor(tx *gorm.DB, userID string) (*model.MedicalRecord, error) {
	var rec model.MedicalRecord

	err := tx.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Take(&rec).
		Error
	if err != nil {
		return nil, err
	}

	return &rec, nil
}
