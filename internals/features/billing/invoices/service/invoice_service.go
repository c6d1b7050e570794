package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	invoiceModel "afyacare_backend/internals/features/billing/invoices/model"
	serviceModel "afyacare_backend/internals/features/billing/services/model"
	helper "afyacare_backend/internals/helpers"
)

/* ===================== Numbering ===================== */

// NextInvoiceNumber returns the next INV<YYYYMM><NNNN> number for the
// issue month. The per-month counter is bumped with a single upsert, so
// concurrent creators never observe the same value.
func NextInvoiceNumber(tx *gorm.DB, issueDate time.Time) (string, error) {
	prefix := "INV" + issueDate.Format("200601")

	var next int
	err := tx.Raw(`
		INSERT INTO billing_invoice_sequences (invoice_sequence_prefix, invoice_sequence_next)
		VALUES (?, 1)
		ON CONFLICT (invoice_sequence_prefix)
		DO UPDATE SET invoice_sequence_next = billing_invoice_sequences.invoice_sequence_next + 1
		RETURNING invoice_sequence_next`, prefix).Scan(&next).Error
	if err != nil {
		return "", fmt.Errorf("generate invoice number: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

/* ===================== Recalculation ===================== */

// Recalculate re-derives subtotal, total, balance and status from the
// invoice's current line items and amount_paid, then persists the
// derived columns. Safe to call any number of times.
func Recalculate(tx *gorm.DB, inv *invoiceModel.Invoice) error {
	var items []invoiceModel.InvoiceItem
	if err := tx.Where("invoice_item_invoice_id = ?", inv.InvoiceID).Find(&items).Error; err != nil {
		return err
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.InvoiceItemTotalPrice)
	}
	inv.ApplyTotals(subtotal)

	return tx.Model(&invoiceModel.Invoice{}).
		Where("invoice_id = ?", inv.InvoiceID).
		Updates(map[string]interface{}{
			"invoice_subtotal":     inv.InvoiceSubtotal,
			"invoice_total_amount": inv.InvoiceTotalAmount,
			"invoice_balance_due":  inv.InvoiceBalanceDue,
			"invoice_status":       inv.InvoiceStatus,
		}).Error
}

/* ===================== Creation ===================== */

// NewItem is a line-item request before pricing has been resolved
// against the service catalog.
type NewItem struct {
	ServiceID   uuid.UUID
	Description *string
	Quantity    int
	UnitPrice   *decimal.Decimal // nil = take the catalog price
}

// CreateInvoice creates the invoice with its initial items, assigns the
// invoice number and derives the totals, all in one transaction.
func CreateInvoice(db *gorm.DB, inv *invoiceModel.Invoice, items []NewItem) error {
	if len(items) == 0 {
		return helper.NewValidationError("items", "at least one item is required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		number, err := NextInvoiceNumber(tx, inv.InvoiceIssueDate)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := tx.Create(inv).Error; err != nil {
			return err
		}

		for _, in := range items {
			if _, err := createItem(tx, inv.InvoiceID, in); err != nil {
				return err
			}
		}
		return Recalculate(tx, inv)
	})
}

// AddItem appends a line item to a live invoice and refreshes the
// totals. Closed invoices (PAID/CANCELLED/REFUNDED) reject new items.
func AddItem(db *gorm.DB, invoiceID uuid.UUID, in NewItem) (*invoiceModel.InvoiceItem, error) {
	var created *invoiceModel.InvoiceItem

	err := db.Transaction(func(tx *gorm.DB) error {
		var inv invoiceModel.Invoice
		if err := tx.First(&inv, "invoice_id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.NewNotFoundError("invoice")
			}
			return err
		}

		switch inv.InvoiceStatus {
		case invoiceModel.InvoiceStatusPaid, invoiceModel.InvoiceStatusCancelled, invoiceModel.InvoiceStatusRefunded:
			return helper.NewInvalidStateError("cannot add items to a %s invoice", inv.InvoiceStatus)
		}

		item, err := createItem(tx, inv.InvoiceID, in)
		if err != nil {
			return err
		}
		created = item
		return Recalculate(tx, &inv)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func createItem(tx *gorm.DB, invoiceID uuid.UUID, in NewItem) (*invoiceModel.InvoiceItem, error) {
	if in.Quantity < 1 {
		return nil, helper.NewValidationError("quantity", "must be at least 1")
	}

	var svc serviceModel.Service
	if err := tx.First(&svc, "service_id = ?", in.ServiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, helper.NewNotFoundError("service")
		}
		return nil, err
	}
	if !svc.ServiceIsActive {
		return nil, helper.NewValidationError("service_id", "service is not active")
	}

	unitPrice := svc.ServiceUnitPrice
	if in.UnitPrice != nil {
		if in.UnitPrice.Sign() < 0 {
			return nil, helper.NewValidationError("unit_price", "must be >= 0")
		}
		unitPrice = *in.UnitPrice
	}

	item := invoiceModel.InvoiceItem{
		InvoiceItemInvoiceID:   invoiceID,
		InvoiceItemServiceID:   svc.ServiceID,
		InvoiceItemDescription: in.Description,
		InvoiceItemQuantity:    in.Quantity,
		InvoiceItemUnitPrice:   unitPrice,
	}
	if item.InvoiceItemDescription == nil {
		desc := svc.ServiceName
		item.InvoiceItemDescription = &desc
	}
	item.ComputeTotal()

	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

/* ===================== Lifecycle ===================== */

// Cancel moves the invoice to CANCELLED. Allowed only from
// DRAFT/PENDING/PARTIALLY_PAID.
func Cancel(db *gorm.DB, invoiceID uuid.UUID) (*invoiceModel.Invoice, error) {
	var inv invoiceModel.Invoice

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, "invoice_id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.NewNotFoundError("invoice")
			}
			return err
		}
		if !inv.CanCancel() {
			return helper.NewInvalidStateError("invoice %s cannot be cancelled from status %s", inv.InvoiceNumber, inv.InvoiceStatus)
		}

		inv.InvoiceStatus = invoiceModel.InvoiceStatusCancelled
		return tx.Model(&invoiceModel.Invoice{}).
			Where("invoice_id = ?", inv.InvoiceID).
			Update("invoice_status", invoiceModel.InvoiceStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ApplyPaymentCredit adds a completed payment's amount to the invoice
// and re-derives the totals. Called inside the settlement transaction,
// so the credit and the payment's terminal transition commit together.
func ApplyPaymentCredit(tx *gorm.DB, invoiceID uuid.UUID, amount decimal.Decimal) error {
	res := tx.Model(&invoiceModel.Invoice{}).
		Where("invoice_id = ?", invoiceID).
		Update("invoice_amount_paid", gorm.Expr("invoice_amount_paid + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return helper.NewNotFoundError("invoice")
	}

	var inv invoiceModel.Invoice
	if err := tx.First(&inv, "invoice_id = ?", invoiceID).Error; err != nil {
		return err
	}
	return Recalculate(tx, &inv)
}

// MarkOverdue flips PENDING and PARTIALLY_PAID invoices whose due date
// has passed to OVERDUE. Returns how many rows changed.
func MarkOverdue(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&invoiceModel.Invoice{}).
		Where("invoice_status IN ?", []string{invoiceModel.InvoiceStatusPending, invoiceModel.InvoiceStatusPartiallyPaid}).
		Where("invoice_due_date < ?", now.Format("2006-01-02")).
		Update("invoice_status", invoiceModel.InvoiceStatusOverdue)
	return res.RowsAffected, res.Error
}
