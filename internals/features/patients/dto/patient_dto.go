package dto

import (
	"time"

	"github.com/google/uuid"

	"afyacare_backend/internals/features/patients/model"
)

/* ===================== Requests ===================== */

type CreatePatientRequest struct {
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	DateOfBirth string  `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender      string  `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=15"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	NationalID  *string `json:"national_id,omitempty" validate:"omitempty,max=30"`
	BloodType   *string `json:"blood_type,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies   *string `json:"allergies,omitempty"`

	EmergencyContactName  *string `json:"emergency_contact_name,omitempty" validate:"omitempty,max=200"`
	EmergencyContactPhone *string `json:"emergency_contact_phone,omitempty" validate:"omitempty,max=15"`
}

func (r *CreatePatientRequest) ToModel() (*model.Patient, error) {
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &model.Patient{
		PatientFirstName:             r.FirstName,
		PatientLastName:              r.LastName,
		PatientDateOfBirth:           dob,
		PatientGender:                r.Gender,
		PatientPhoneNumber:           r.PhoneNumber,
		PatientEmail:                 r.Email,
		PatientAddress:               r.Address,
		PatientNationalID:            r.NationalID,
		PatientBloodType:             r.BloodType,
		PatientAllergies:             r.Allergies,
		PatientEmergencyContactName:  r.EmergencyContactName,
		PatientEmergencyContactPhone: r.EmergencyContactPhone,
		PatientIsActive:              true,
	}, nil
}

type UpdatePatientRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=15"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	BloodType   *string `json:"blood_type,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies   *string `json:"allergies,omitempty"`

	EmergencyContactName  *string `json:"emergency_contact_name,omitempty" validate:"omitempty,max=200"`
	EmergencyContactPhone *string `json:"emergency_contact_phone,omitempty" validate:"omitempty,max=15"`
}

func (r *UpdatePatientRequest) Apply(m *model.Patient) {
	if r.FirstName != nil {
		m.PatientFirstName = *r.FirstName
	}
	if r.LastName != nil {
		m.PatientLastName = *r.LastName
	}
	if r.PhoneNumber != nil {
		m.PatientPhoneNumber = r.PhoneNumber
	}
	if r.Email != nil {
		m.PatientEmail = r.Email
	}
	if r.Address != nil {
		m.PatientAddress = r.Address
	}
	if r.BloodType != nil {
		m.PatientBloodType = r.BloodType
	}
	if r.Allergies != nil {
		m.PatientAllergies = r.Allergies
	}
	if r.EmergencyContactName != nil {
		m.PatientEmergencyContactName = r.EmergencyContactName
	}
	if r.EmergencyContactPhone != nil {
		m.PatientEmergencyContactPhone = r.EmergencyContactPhone
	}
}

/* ===================== Responses ===================== */

type PatientResponse struct {
	PatientID   uuid.UUID `json:"patient_id"`
	MRN         string    `json:"mrn"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth string    `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Address     *string   `json:"address,omitempty"`
	NationalID  *string   `json:"national_id,omitempty"`
	BloodType   *string   `json:"blood_type,omitempty"`
	Allergies   *string   `json:"allergies,omitempty"`

	EmergencyContactName  *string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string `json:"emergency_contact_phone,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func FromModel(m *model.Patient) PatientResponse {
	return PatientResponse{
		PatientID:             m.PatientID,
		MRN:                   m.PatientMRN,
		FirstName:             m.PatientFirstName,
		LastName:              m.PatientLastName,
		DateOfBirth:           m.PatientDateOfBirth.Format("2006-01-02"),
		Gender:                m.PatientGender,
		PhoneNumber:           m.PatientPhoneNumber,
		Email:                 m.PatientEmail,
		Address:               m.PatientAddress,
		NationalID:            m.PatientNationalID,
		BloodType:             m.PatientBloodType,
		Allergies:             m.PatientAllergies,
		EmergencyContactName:  m.PatientEmergencyContactName,
		EmergencyContactPhone: m.PatientEmergencyContactPhone,
		IsActive:              m.PatientIsActive,
		CreatedAt:             m.CreatedAt,
	}
}
