package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/google/uuid"
)

/* ===================== Enums (string) ===================== */

const (
	ServiceCategoryConsultation = "CONSULTATION"
	ServiceCategoryLaboratory   = "LABORATORY"
	ServiceCategoryPharmacy     = "PHARMACY"
	ServiceCategoryRadiology    = "RADIOLOGY"
	ServiceCategoryProcedure    = "PROCEDURE"
	ServiceCategoryAdmission    = "ADMISSION"
	ServiceCategorySurgery      = "SURGERY"
	ServiceCategoryEmergency    = "EMERGENCY"
	ServiceCategoryOther        = "OTHER"
)

/* ===================== Model ===================== */

// Service is a billable catalog item. Deactivation is a flag flip,
// never a delete, because invoice items keep referencing it.
type Service struct {
	ServiceID uuid.UUID `gorm:"column:service_id;type:uuid;primaryKey" json:"service_id"`

	ServiceCode        string  `gorm:"column:service_code;type:varchar(20);uniqueIndex;not null" json:"service_code"`
	ServiceName        string  `gorm:"column:service_name;type:varchar(200);not null" json:"service_name"`
	ServiceDescription *string `gorm:"column:service_description" json:"service_description,omitempty"`

	ServiceCategory  string          `gorm:"column:service_category;type:varchar(20);not null;default:'OTHER';index" json:"service_category"`
	ServiceUnitPrice decimal.Decimal `gorm:"column:service_unit_price;type:numeric(10,2);not null" json:"service_unit_price"`

	ServiceIsActive bool `gorm:"column:service_is_active;not null;default:true;index" json:"service_is_active"`

	CreatedAt time.Time      `gorm:"column:service_created_at;autoCreateTime" json:"service_created_at"`
	UpdatedAt time.Time      `gorm:"column:service_updated_at;autoUpdateTime" json:"service_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:service_deleted_at;index" json:"service_deleted_at,omitempty"`
}

func (Service) TableName() string { return "billing_services" }

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ServiceID == uuid.Nil {
		s.ServiceID = uuid.New()
	}
	return nil
}
