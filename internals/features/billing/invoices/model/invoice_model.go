package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */

const (
	InvoiceStatusDraft         = "DRAFT"
	InvoiceStatusPending       = "PENDING"
	InvoiceStatusPartiallyPaid = "PARTIALLY_PAID"
	InvoiceStatusPaid          = "PAID"
	InvoiceStatusOverdue       = "OVERDUE"
	InvoiceStatusCancelled     = "CANCELLED"
	InvoiceStatusRefunded      = "REFUNDED"
)

/* ===================== Model ===================== */

// Invoice is the billing aggregate root. All derived amounts
// (subtotal/total/balance/status) are written only by Recalculate.
type Invoice struct {
	InvoiceID uuid.UUID `gorm:"column:invoice_id;type:uuid;primaryKey" json:"invoice_id"`

	InvoiceNumber    string    `gorm:"column:invoice_number;type:varchar(20);uniqueIndex;not null" json:"invoice_number"`
	InvoicePatientID uuid.UUID `gorm:"column:invoice_patient_id;type:uuid;not null;index" json:"invoice_patient_id"`

	InvoiceStatus    string    `gorm:"column:invoice_status;type:varchar(20);not null;default:'DRAFT';index" json:"invoice_status"`
	InvoiceIssueDate time.Time `gorm:"column:invoice_issue_date;type:date;not null" json:"invoice_issue_date"`
	InvoiceDueDate   time.Time `gorm:"column:invoice_due_date;type:date;not null;index" json:"invoice_due_date"`

	InvoiceSubtotal       decimal.Decimal `gorm:"column:invoice_subtotal;type:numeric(12,2);not null;default:0" json:"invoice_subtotal"`
	InvoiceTaxAmount      decimal.Decimal `gorm:"column:invoice_tax_amount;type:numeric(10,2);not null;default:0" json:"invoice_tax_amount"`
	InvoiceDiscountAmount decimal.Decimal `gorm:"column:invoice_discount_amount;type:numeric(10,2);not null;default:0" json:"invoice_discount_amount"`
	InvoiceTotalAmount    decimal.Decimal `gorm:"column:invoice_total_amount;type:numeric(12,2);not null;default:0" json:"invoice_total_amount"`
	InvoiceAmountPaid     decimal.Decimal `gorm:"column:invoice_amount_paid;type:numeric(12,2);not null;default:0" json:"invoice_amount_paid"`
	InvoiceBalanceDue     decimal.Decimal `gorm:"column:invoice_balance_due;type:numeric(12,2);not null;default:0" json:"invoice_balance_due"`

	InvoiceNotes     *string    `gorm:"column:invoice_notes" json:"invoice_notes,omitempty"`
	InvoiceCreatedBy *uuid.UUID `gorm:"column:invoice_created_by;type:uuid" json:"invoice_created_by,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceItemInvoiceID;references:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time      `gorm:"column:invoice_created_at;autoCreateTime;index" json:"invoice_created_at"`
	UpdatedAt time.Time      `gorm:"column:invoice_updated_at;autoUpdateTime" json:"invoice_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:invoice_deleted_at;index" json:"invoice_deleted_at,omitempty"`
}

func (Invoice) TableName() string { return "billing_invoices" }

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.InvoiceID == uuid.Nil {
		i.InvoiceID = uuid.New()
	}
	return nil
}

// IsPayable reports whether new payments may be initiated against the invoice.
func (i *Invoice) IsPayable() bool {
	switch i.InvoiceStatus {
	case InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return false
	default:
		return true
	}
}

// CanCancel reports whether Cancel is a legal transition.
func (i *Invoice) CanCancel() bool {
	switch i.InvoiceStatus {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPartiallyPaid:
		return true
	default:
		return false
	}
}

// ApplyTotals derives subtotal/total/balance and the payment-driven
// statuses from the given line-item subtotal. Pure; idempotent by
// construction. Externally driven statuses (DRAFT/PENDING/OVERDUE/
// CANCELLED/REFUNDED) are left alone unless the balance says otherwise.
func (i *Invoice) ApplyTotals(subtotal decimal.Decimal) {
	i.InvoiceSubtotal = subtotal
	i.InvoiceTotalAmount = subtotal.Add(i.InvoiceTaxAmount).Sub(i.InvoiceDiscountAmount)
	i.InvoiceBalanceDue = i.InvoiceTotalAmount.Sub(i.InvoiceAmountPaid)

	if i.InvoiceBalanceDue.Sign() <= 0 {
		i.InvoiceStatus = InvoiceStatusPaid
	} else if i.InvoiceAmountPaid.Sign() > 0 {
		i.InvoiceStatus = InvoiceStatusPartiallyPaid
	}
}

/* ===================== Invoice item ===================== */

// InvoiceItem is a line item, owned exclusively by its Invoice.
type InvoiceItem struct {
	InvoiceItemID uuid.UUID `gorm:"column:invoice_item_id;type:uuid;primaryKey" json:"invoice_item_id"`

	InvoiceItemInvoiceID uuid.UUID `gorm:"column:invoice_item_invoice_id;type:uuid;not null;index" json:"invoice_item_invoice_id"`
	InvoiceItemServiceID uuid.UUID `gorm:"column:invoice_item_service_id;type:uuid;not null" json:"invoice_item_service_id"`

	InvoiceItemDescription *string         `gorm:"column:invoice_item_description;type:varchar(500)" json:"invoice_item_description,omitempty"`
	InvoiceItemQuantity    int             `gorm:"column:invoice_item_quantity;not null;check:invoice_item_quantity >= 1" json:"invoice_item_quantity"`
	InvoiceItemUnitPrice   decimal.Decimal `gorm:"column:invoice_item_unit_price;type:numeric(10,2);not null" json:"invoice_item_unit_price"`
	InvoiceItemTotalPrice  decimal.Decimal `gorm:"column:invoice_item_total_price;type:numeric(12,2);not null" json:"invoice_item_total_price"`

	CreatedAt time.Time `gorm:"column:invoice_item_created_at;autoCreateTime" json:"invoice_item_created_at"`
}

func (InvoiceItem) TableName() string { return "billing_invoice_items" }

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if it.InvoiceItemID == uuid.Nil {
		it.InvoiceItemID = uuid.New()
	}
	return nil
}

// ComputeTotal refreshes total_price from quantity * unit_price.
func (it *InvoiceItem) ComputeTotal() {
	it.InvoiceItemTotalPrice = it.InvoiceItemUnitPrice.Mul(decimal.NewFromInt(int64(it.InvoiceItemQuantity)))
}

/* ===================== Monthly number sequence ===================== */

// InvoiceSequence backs invoice number generation: one row per
// INV<YYYYMM> prefix, bumped atomically with an upsert. Replaces the
// count-existing-rows approach, which races under concurrent creators.
type InvoiceSequence struct {
	InvoiceSequencePrefix string `gorm:"column:invoice_sequence_prefix;type:varchar(12);primaryKey" json:"invoice_sequence_prefix"`
	InvoiceSequenceNext   int    `gorm:"column:invoice_sequence_next;not null;default:0" json:"invoice_sequence_next"`
}

func (InvoiceSequence) TableName() string { return "billing_invoice_sequences" }
