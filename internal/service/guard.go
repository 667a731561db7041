package service

import (
	"context"
	"fmt"
	"mime/multipart"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"
	"mediband/api/internal/store"

	"go.uber.org/zap"
)

// ReadPolicy controls who may read a record by its owner's ID.
type ReadPolicy string

const (
	ReadPublic        ReadPolicy = "public"        // anyone, including anonymous callers
	ReadAuthenticated ReadPolicy = "authenticated" // any logged in user
	ReadOwner         ReadPolicy = "owner"         // only the owner
)

func ParseReadPolicy(s string) (ReadPolicy, error) {
	switch p := ReadPolicy(s); p {
	case ReadPublic, ReadAuthenticated, ReadOwner:
		return p, nil
	case "":
		return ReadPublic, nil
	default:
		return "", fmt.Errorf("unknown lookup policy %q", s)
	}
}

const prescriptionsFolder = "prescriptions"

type RecordRepository interface {
	Save(ctx context.Context, rec *model.MedicalRecord, policy store.ResubmitPolicy) error
	Exists(ctx context.Context, userID string) (bool, error)
	FindByUser(ctx context.Context, userID string) (*model.MedicalRecord, error)
}

type AttachmentUploader interface {
	UploadAll(ctx context.Context, files []*multipart.FileHeader, folder string) ([]Attachment, error)
	Discard(ctx context.Context, attachments []Attachment) error
}

// RecordGuard is the only way handlers reach medical records. The acting
// user is always passed in explicitly.
type RecordGuard struct {
	records  RecordRepository
	uploader AttachmentUploader
	resubmit store.ResubmitPolicy
	lookup   ReadPolicy
}

func NewRecordGuard(records RecordRepository, uploader AttachmentUploader, resubmit store.ResubmitPolicy, lookup ReadPolicy) *RecordGuard {
	if lookup == ReadPublic {
		zap.L().Warn("Medical records can be read by anyone who knows a user ID, set medform.lookup_policy to owner to restrict it")
	}

	return &RecordGuard{
		records:  records,
		uploader: uploader,
		resubmit: resubmit,
		lookup:   lookup,
	}
}

// AuthorizeWrite validates in, uploads files and saves the record for user.
// The record belongs to user no matter what the submission contains.
// Nothing is persisted unless every attachment made it to storage, and
// uploaded attachments are removed again if the save fails.
func (g *RecordGuard) AuthorizeWrite(ctx context.Context, user *model.User, in store.RecordInput, files []*multipart.FileHeader) (*model.MedicalRecord, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}

	rec, err := store.BuildRecord(in)
	if err != nil {
		return nil, err
	}
	rec.UserID = user.ID

	if g.resubmit == store.ResubmitReject {
		exists, err := g.records.Exists(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.ErrRecordExists
		}
	}

	attachments, err := g.uploader.UploadAll(ctx, files, prescriptionsFolder)
	if err != nil {
		return nil, err
	}

	rec.Prescriptions = make(model.StringSlice, len(attachments))
	for i, a := range attachments {
		rec.Prescriptions[i] = a.URL
	}

	if err := g.records.Save(ctx, rec, g.resubmit); err != nil {
		if derr := g.uploader.Discard(ctx, attachments); derr != nil {
			zap.L().Error("Failed to remove attachments of unsaved record", zap.Error(derr), zap.String("userID", user.ID))
		}
		return nil, err
	}

	rec.User = user
	return rec, nil
}

// AuthorizeRead returns the newest record of requestedUserID. An empty
// requestedUserID means the caller's own record.
func (g *RecordGuard) AuthorizeRead(ctx context.Context, requestedUserID string, caller *model.User) (*model.MedicalRecord, error) {
	if requestedUserID == "" {
		if caller == nil {
			return nil, apperr.ErrUnauthenticated
		}
		return g.records.FindByUser(ctx, caller.ID)
	}

	switch g.lookup {
	case ReadPublic:
	case ReadAuthenticated:
		if caller == nil {
			return nil, apperr.ErrUnauthenticated
		}
	case ReadOwner:
		if caller == nil {
			return nil, apperr.ErrUnauthenticated
		}
		if caller.ID != requestedUserID {
			return nil, apperr.ErrForbidden
		}
	default:
		return nil, fmt.Errorf("unknown lookup policy %q", g.lookup)
	}

	return g.records.FindByUser(ctx, requestedUserID)
}
