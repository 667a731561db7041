package model

import "time"

type MedicalRecord struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"index;not null;size:16" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// OwnerSlot holds UserID on the single row a user may have when records
	// are kept one per user. Rows saved without that limit leave it NULL,
	// which the unique index doesn't count.
	OwnerSlot *string `gorm:"uniqueIndex;size:16" json:"-"`

	Age    float64 `gorm:"not null" json:"age"`
	Height float64 `gorm:"not null" json:"height"`
	Weight float64 `gorm:"not null" json:"weight"`

	Gender           string `gorm:"not null" json:"gender"`
	BloodGroup       string `gorm:"not null" json:"bloodGroup"`
	EmergencyContact string `gorm:"not null" json:"emergencyContact"`

	Allergies      string `json:"allergies"`
	Medication     string `json:"medication"`
	MedicationList string `json:"medicationlist"`
	Surgeries      string `json:"surgeries"`

	Prescriptions StringSlice `gorm:"type:text" json:"prescriptions"`

	FamilyHistory         FamilyHistory         `gorm:"type:text;serializer:json" json:"familyHistory"`
	CurrentlyExperiencing CurrentlyExperiencing `gorm:"type:text;serializer:json" json:"currentlyExperiencing"`
	Immunizations         Immunizations         `gorm:"type:text;serializer:json" json:"immunizations"`
	Lifestyle             Lifestyle             `gorm:"type:text;serializer:json" json:"lifestyle"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
