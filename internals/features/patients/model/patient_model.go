package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// Patient is the clinical master record. The MRN is assigned once at
// registration and never changes.
type Patient struct {
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;primaryKey" json:"patient_id"`

	PatientMRN       string `gorm:"column:patient_mrn;type:varchar(20);uniqueIndex;not null" json:"patient_mrn"`
	PatientFirstName string `gorm:"column:patient_first_name;type:varchar(100);not null" json:"patient_first_name"`
	PatientLastName  string `gorm:"column:patient_last_name;type:varchar(100);not null;index" json:"patient_last_name"`

	PatientDateOfBirth time.Time `gorm:"column:patient_date_of_birth;type:date;not null" json:"patient_date_of_birth"`
	PatientGender      string    `gorm:"column:patient_gender;type:varchar(10);not null" json:"patient_gender"`

	PatientPhoneNumber *string `gorm:"column:patient_phone_number;type:varchar(15);index" json:"patient_phone_number,omitempty"`
	PatientEmail       *string `gorm:"column:patient_email;type:varchar(255)" json:"patient_email,omitempty"`
	PatientAddress     *string `gorm:"column:patient_address;type:varchar(500)" json:"patient_address,omitempty"`
	PatientNationalID  *string `gorm:"column:patient_national_id;type:varchar(30);index" json:"patient_national_id,omitempty"`

	PatientBloodType *string `gorm:"column:patient_blood_type;type:varchar(5)" json:"patient_blood_type,omitempty"`
	PatientAllergies *string `gorm:"column:patient_allergies;type:text" json:"patient_allergies,omitempty"`

	PatientEmergencyContactName  *string `gorm:"column:patient_emergency_contact_name;type:varchar(200)" json:"patient_emergency_contact_name,omitempty"`
	PatientEmergencyContactPhone *string `gorm:"column:patient_emergency_contact_phone;type:varchar(15)" json:"patient_emergency_contact_phone,omitempty"`

	PatientIsActive bool `gorm:"column:patient_is_active;not null;default:true;index" json:"patient_is_active"`

	CreatedAt time.Time      `gorm:"column:patient_created_at;autoCreateTime" json:"patient_created_at"`
	UpdatedAt time.Time      `gorm:"column:patient_updated_at;autoUpdateTime" json:"patient_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:patient_deleted_at;index" json:"patient_deleted_at,omitempty"`
}

func (Patient) TableName() string { return "patients" }

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.PatientID == uuid.Nil {
		p.PatientID = uuid.New()
	}
	return nil
}

// FullName joins first and last name for display.
func (p *Patient) FullName() string {
	return p.PatientFirstName + " " + p.PatientLastName
}
