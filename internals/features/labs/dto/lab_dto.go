package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"afyacare_backend/internals/features/labs/model"
)

/* ===================== Test types ===================== */

type CreateTestTypeRequest struct {
	Code           string          `json:"code" validate:"required,max=20"`
	Name           string          `json:"name" validate:"required,max=255"`
	Category       *string         `json:"category,omitempty" validate:"omitempty,max=100"`
	Price          decimal.Decimal `json:"price"`
	Specimen       *string         `json:"specimen,omitempty" validate:"omitempty,max=100"`
	ReferenceRange *string         `json:"reference_range,omitempty" validate:"omitempty,max=255"`
	Unit           *string         `json:"unit,omitempty" validate:"omitempty,max=30"`
}

func (r *CreateTestTypeRequest) ToModel() *model.TestType {
	return &model.TestType{
		TestTypeCode:           r.Code,
		TestTypeName:           r.Name,
		TestTypeCategory:       r.Category,
		TestTypePrice:          r.Price,
		TestTypeSpecimen:       r.Specimen,
		TestTypeReferenceRange: r.ReferenceRange,
		TestTypeUnit:           r.Unit,
		TestTypeIsActive:       true,
	}
}

/* ===================== Orders ===================== */

type CreateLabOrderRequest struct {
	PatientID  uuid.UUID `json:"patient_id" validate:"required"`
	TestTypeID uuid.UUID `json:"test_type_id" validate:"required"`
	Priority   *string   `json:"priority,omitempty" validate:"omitempty,oneof=ROUTINE URGENT STAT"`
	Notes      *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type EnterResultRequest struct {
	Value      string  `json:"value" validate:"required,max=255"`
	Unit       *string `json:"unit,omitempty" validate:"omitempty,max=30"`
	IsAbnormal bool    `json:"is_abnormal"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}
