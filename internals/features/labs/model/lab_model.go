package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */

const (
	LabOrderStatusPending    = "PENDING"
	LabOrderStatusCollected  = "COLLECTED"
	LabOrderStatusInProgress = "IN_PROGRESS"
	LabOrderStatusResulted   = "RESULTED"
	LabOrderStatusReviewed   = "REVIEWED"
	LabOrderStatusCancelled  = "CANCELLED"
)

const (
	LabPriorityRoutine = "ROUTINE"
	LabPriorityUrgent  = "URGENT"
	LabPriorityStat    = "STAT"
)

// orderTransitions is the forward workflow. CANCELLED is reachable from
// any state before results exist.
var orderTransitions = map[string]string{
	LabOrderStatusPending:    LabOrderStatusCollected,
	LabOrderStatusCollected:  LabOrderStatusInProgress,
	LabOrderStatusInProgress: LabOrderStatusResulted,
	LabOrderStatusResulted:   LabOrderStatusReviewed,
}

/* ===================== Test type catalog ===================== */

type TestType struct {
	TestTypeID uuid.UUID `gorm:"column:test_type_id;type:uuid;primaryKey" json:"test_type_id"`

	TestTypeCode     string          `gorm:"column:test_type_code;type:varchar(20);uniqueIndex;not null" json:"test_type_code"`
	TestTypeName     string          `gorm:"column:test_type_name;type:varchar(255);not null" json:"test_type_name"`
	TestTypeCategory *string         `gorm:"column:test_type_category;type:varchar(100)" json:"test_type_category,omitempty"`
	TestTypePrice    decimal.Decimal `gorm:"column:test_type_price;type:numeric(10,2);not null;default:0" json:"test_type_price"`

	TestTypeSpecimen       *string `gorm:"column:test_type_specimen;type:varchar(100)" json:"test_type_specimen,omitempty"`
	TestTypeReferenceRange *string `gorm:"column:test_type_reference_range;type:varchar(255)" json:"test_type_reference_range,omitempty"`
	TestTypeUnit           *string `gorm:"column:test_type_unit;type:varchar(30)" json:"test_type_unit,omitempty"`

	TestTypeIsActive bool `gorm:"column:test_type_is_active;not null;default:true" json:"test_type_is_active"`

	CreatedAt time.Time `gorm:"column:test_type_created_at;autoCreateTime" json:"test_type_created_at"`
	UpdatedAt time.Time `gorm:"column:test_type_updated_at;autoUpdateTime" json:"test_type_updated_at"`
}

func (TestType) TableName() string { return "lab_test_types" }

func (t *TestType) BeforeCreate(tx *gorm.DB) error {
	if t.TestTypeID == uuid.Nil {
		t.TestTypeID = uuid.New()
	}
	return nil
}

/* ===================== Lab order ===================== */

type LabOrder struct {
	LabOrderID uuid.UUID `gorm:"column:lab_order_id;type:uuid;primaryKey" json:"lab_order_id"`

	LabOrderPatientID  uuid.UUID `gorm:"column:lab_order_patient_id;type:uuid;not null;index" json:"lab_order_patient_id"`
	LabOrderTestTypeID uuid.UUID `gorm:"column:lab_order_test_type_id;type:uuid;not null" json:"lab_order_test_type_id"`
	LabOrderOrderedBy  uuid.UUID `gorm:"column:lab_order_ordered_by;type:uuid;not null" json:"lab_order_ordered_by"`

	LabOrderStatus   string  `gorm:"column:lab_order_status;type:varchar(20);not null;default:'PENDING';index" json:"lab_order_status"`
	LabOrderPriority string  `gorm:"column:lab_order_priority;type:varchar(10);not null;default:'ROUTINE'" json:"lab_order_priority"`
	LabOrderNotes    *string `gorm:"column:lab_order_notes;type:varchar(500)" json:"lab_order_notes,omitempty"`

	LabOrderCollectedAt *time.Time `gorm:"column:lab_order_collected_at" json:"lab_order_collected_at,omitempty"`
	LabOrderResultedAt  *time.Time `gorm:"column:lab_order_resulted_at" json:"lab_order_resulted_at,omitempty"`
	LabOrderReviewedBy  *uuid.UUID `gorm:"column:lab_order_reviewed_by;type:uuid" json:"lab_order_reviewed_by,omitempty"`

	TestType *TestType  `gorm:"foreignKey:LabOrderTestTypeID;references:TestTypeID" json:"test_type,omitempty"`
	Result   *LabResult `gorm:"foreignKey:LabResultOrderID;references:LabOrderID" json:"result,omitempty"`

	CreatedAt time.Time `gorm:"column:lab_order_created_at;autoCreateTime;index" json:"lab_order_created_at"`
	UpdatedAt time.Time `gorm:"column:lab_order_updated_at;autoUpdateTime" json:"lab_order_updated_at"`
}

func (LabOrder) TableName() string { return "lab_orders" }

func (o *LabOrder) BeforeCreate(tx *gorm.DB) error {
	if o.LabOrderID == uuid.Nil {
		o.LabOrderID = uuid.New()
	}
	return nil
}

// CanAdvanceTo reports whether next is the legal forward step.
func (o *LabOrder) CanAdvanceTo(next string) bool {
	return orderTransitions[o.LabOrderStatus] == next
}

// CanCancel reports whether the order may still be cancelled.
// Orders with results are past the point of cancellation.
func (o *LabOrder) CanCancel() bool {
	switch o.LabOrderStatus {
	case LabOrderStatusPending, LabOrderStatusCollected, LabOrderStatusInProgress:
		return true
	default:
		return false
	}
}

/* ===================== Lab result ===================== */

type LabResult struct {
	LabResultID      uuid.UUID `gorm:"column:lab_result_id;type:uuid;primaryKey" json:"lab_result_id"`
	LabResultOrderID uuid.UUID `gorm:"column:lab_result_order_id;type:uuid;uniqueIndex;not null" json:"lab_result_order_id"`

	LabResultValue      string  `gorm:"column:lab_result_value;type:varchar(255);not null" json:"lab_result_value"`
	LabResultUnit       *string `gorm:"column:lab_result_unit;type:varchar(30)" json:"lab_result_unit,omitempty"`
	LabResultIsAbnormal bool    `gorm:"column:lab_result_is_abnormal;not null;default:false" json:"lab_result_is_abnormal"`
	LabResultNotes      *string `gorm:"column:lab_result_notes;type:varchar(500)" json:"lab_result_notes,omitempty"`

	LabResultEnteredBy uuid.UUID `gorm:"column:lab_result_entered_by;type:uuid;not null" json:"lab_result_entered_by"`

	CreatedAt time.Time `gorm:"column:lab_result_created_at;autoCreateTime" json:"lab_result_created_at"`
}

func (LabResult) TableName() string { return "lab_results" }

func (r *LabResult) BeforeCreate(tx *gorm.DB) error {
	if r.LabResultID == uuid.Nil {
		r.LabResultID = uuid.New()
	}
	return nil
}
