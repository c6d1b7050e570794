package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */

const (
	PaymentMethodMpesa     = "MPESA"
	PaymentMethodCash      = "CASH"
	PaymentMethodCard      = "CARD"
	PaymentMethodInsurance = "INSURANCE"
	PaymentMethodBank      = "BANK"
)

const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusCompleted  = "COMPLETED"
	PaymentStatusFailed     = "FAILED"
	PaymentStatusCancelled  = "CANCELLED"
	PaymentStatusTimeout    = "TIMEOUT"
)

// OpenStatuses are the non-terminal states. Every terminal transition
// is guarded with payment_status IN OpenStatuses so a lost race is a
// silent no-op instead of a double write.
var OpenStatuses = []string{PaymentStatusPending, PaymentStatusProcessing}

/* ===================== Model ===================== */

// Payment records one settlement attempt against an invoice. For MPESA
// the row also carries the gateway correlation ids and the raw callback
// payload for audit.
type Payment struct {
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;primaryKey" json:"payment_id"`

	PaymentInvoiceID uuid.UUID       `gorm:"column:payment_invoice_id;type:uuid;not null;index" json:"payment_invoice_id"`
	PaymentAmount    decimal.Decimal `gorm:"column:payment_amount;type:numeric(12,2);not null" json:"payment_amount"`
	PaymentMethod    string          `gorm:"column:payment_method;type:varchar(20);not null" json:"payment_method"`
	PaymentStatus    string          `gorm:"column:payment_status;type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`

	PaymentPhoneNumber *string `gorm:"column:payment_phone_number;type:varchar(15)" json:"payment_phone_number,omitempty"`

	// Daraja correlation ids. checkout_request_id is the callback key.
	PaymentMerchantRequestID *string `gorm:"column:payment_merchant_request_id;type:varchar(64);index" json:"payment_merchant_request_id,omitempty"`
	PaymentCheckoutRequestID *string `gorm:"column:payment_checkout_request_id;type:varchar(64);uniqueIndex" json:"payment_checkout_request_id,omitempty"`

	PaymentMpesaReceipt    *string    `gorm:"column:payment_mpesa_receipt;type:varchar(30)" json:"payment_mpesa_receipt,omitempty"`
	PaymentTransactionDate *time.Time `gorm:"column:payment_transaction_date" json:"payment_transaction_date,omitempty"`
	PaymentResultCode      *int       `gorm:"column:payment_result_code" json:"payment_result_code,omitempty"`
	PaymentResultDesc      *string    `gorm:"column:payment_result_desc;type:varchar(255)" json:"payment_result_desc,omitempty"`

	PaymentCallbackPayload datatypes.JSON `gorm:"column:payment_callback_payload;type:jsonb" json:"payment_callback_payload,omitempty"`

	PaymentReference   *string    `gorm:"column:payment_reference;type:varchar(100)" json:"payment_reference,omitempty"`
	PaymentNotes       *string    `gorm:"column:payment_notes;type:varchar(500)" json:"payment_notes,omitempty"`
	PaymentProcessedBy *uuid.UUID `gorm:"column:payment_processed_by;type:uuid" json:"payment_processed_by,omitempty"`

	CreatedAt time.Time `gorm:"column:payment_created_at;autoCreateTime;index" json:"payment_created_at"`
	UpdatedAt time.Time `gorm:"column:payment_updated_at;autoUpdateTime" json:"payment_updated_at"`
}

func (Payment) TableName() string { return "billing_payments" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.PaymentID == uuid.Nil {
		p.PaymentID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the payment has reached a final state.
func (p *Payment) IsTerminal() bool {
	switch p.PaymentStatus {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusTimeout:
		return true
	default:
		return false
	}
}
