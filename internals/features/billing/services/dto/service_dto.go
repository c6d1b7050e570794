package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"afyacare_backend/internals/features/billing/services/model"
)

/* =========================================================
   REQUEST DTOs
========================================================= */

type CreateServiceRequest struct {
	ServiceCode        string          `json:"service_code" validate:"required,max=20"`
	ServiceName        string          `json:"service_name" validate:"required,max=200"`
	ServiceDescription *string         `json:"service_description,omitempty"`
	ServiceCategory    string          `json:"service_category" validate:"required,oneof=CONSULTATION LABORATORY PHARMACY RADIOLOGY PROCEDURE ADMISSION SURGERY EMERGENCY OTHER"`
	ServiceUnitPrice   decimal.Decimal `json:"service_unit_price"`
}

func (r *CreateServiceRequest) Validate() error {
	if r.ServiceUnitPrice.IsNegative() {
		return errNegativePrice
	}
	return nil
}

func (r *CreateServiceRequest) ToModel() *model.Service {
	return &model.Service{
		ServiceCode:        r.ServiceCode,
		ServiceName:        r.ServiceName,
		ServiceDescription: r.ServiceDescription,
		ServiceCategory:    r.ServiceCategory,
		ServiceUnitPrice:   r.ServiceUnitPrice,
		ServiceIsActive:    true,
	}
}

type UpdateServiceRequest struct {
	ServiceName        *string          `json:"service_name,omitempty" validate:"omitempty,max=200"`
	ServiceDescription *string          `json:"service_description,omitempty"`
	ServiceCategory    *string          `json:"service_category,omitempty" validate:"omitempty,oneof=CONSULTATION LABORATORY PHARMACY RADIOLOGY PROCEDURE ADMISSION SURGERY EMERGENCY OTHER"`
	ServiceUnitPrice   *decimal.Decimal `json:"service_unit_price,omitempty"`
	ServiceIsActive    *bool            `json:"service_is_active,omitempty"`
}

func (r *UpdateServiceRequest) Apply(m *model.Service) error {
	if r.ServiceName != nil {
		m.ServiceName = *r.ServiceName
	}
	if r.ServiceDescription != nil {
		m.ServiceDescription = r.ServiceDescription
	}
	if r.ServiceCategory != nil {
		m.ServiceCategory = *r.ServiceCategory
	}
	if r.ServiceUnitPrice != nil {
		if r.ServiceUnitPrice.IsNegative() {
			return errNegativePrice
		}
		m.ServiceUnitPrice = *r.ServiceUnitPrice
	}
	if r.ServiceIsActive != nil {
		m.ServiceIsActive = *r.ServiceIsActive
	}
	return nil
}

/* =========================================================
   RESPONSE DTOs
========================================================= */

type ServiceResponse struct {
	ServiceID          uuid.UUID       `json:"service_id"`
	ServiceCode        string          `json:"service_code"`
	ServiceName        string          `json:"service_name"`
	ServiceDescription *string         `json:"service_description,omitempty"`
	ServiceCategory    string          `json:"service_category"`
	ServiceUnitPrice   decimal.Decimal `json:"service_unit_price"`
	ServiceIsActive    bool            `json:"service_is_active"`
	ServiceCreatedAt   time.Time       `json:"service_created_at"`
}

func FromModel(m *model.Service) ServiceResponse {
	return ServiceResponse{
		ServiceID:          m.ServiceID,
		ServiceCode:        m.ServiceCode,
		ServiceName:        m.ServiceName,
		ServiceDescription: m.ServiceDescription,
		ServiceCategory:    m.ServiceCategory,
		ServiceUnitPrice:   m.ServiceUnitPrice,
		ServiceIsActive:    m.ServiceIsActive,
		ServiceCreatedAt:   m.CreatedAt,
	}
}
