package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	invoiceModel "afyacare_backend/internals/features/billing/invoices/model"
	invoiceService "afyacare_backend/internals/features/billing/invoices/service"
)

/* ===================== Requests ===================== */

type CreateInvoiceItemRequest struct {
	ServiceID   uuid.UUID        `json:"service_id" validate:"required"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Quantity    int              `json:"quantity" validate:"required,min=1"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateInvoiceRequest struct {
	PatientID      uuid.UUID                  `json:"patient_id" validate:"required"`
	DueDate        string                     `json:"due_date" validate:"required,datetime=2006-01-02"`
	TaxAmount      *decimal.Decimal           `json:"tax_amount,omitempty"`
	DiscountAmount *decimal.Decimal           `json:"discount_amount,omitempty"`
	Notes          *string                    `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items          []CreateInvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ToModel builds the aggregate root; derived amounts stay zero until
// the first recalculation.
func (r *CreateInvoiceRequest) ToModel(createdBy *uuid.UUID, now time.Time) (*invoiceModel.Invoice, error) {
	dueDate, err := time.Parse("2006-01-02", r.DueDate)
	if err != nil {
		return nil, err
	}

	inv := &invoiceModel.Invoice{
		InvoicePatientID: r.PatientID,
		InvoiceStatus:    invoiceModel.InvoiceStatusPending,
		InvoiceIssueDate: now,
		InvoiceDueDate:   dueDate,
		InvoiceNotes:     r.Notes,
		InvoiceCreatedBy: createdBy,
	}
	if r.TaxAmount != nil {
		inv.InvoiceTaxAmount = *r.TaxAmount
	}
	if r.DiscountAmount != nil {
		inv.InvoiceDiscountAmount = *r.DiscountAmount
	}
	return inv, nil
}

// ToNewItems converts the request items into pricing inputs.
func (r *CreateInvoiceRequest) ToNewItems() []invoiceService.NewItem {
	items := make([]invoiceService.NewItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, invoiceService.NewItem{
			ServiceID:   it.ServiceID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return items
}

type AddInvoiceItemRequest struct {
	ServiceID   uuid.UUID        `json:"service_id" validate:"required"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Quantity    int              `json:"quantity" validate:"required,min=1"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

func (r *AddInvoiceItemRequest) ToNewItem() invoiceService.NewItem {
	return invoiceService.NewItem{
		ServiceID:   r.ServiceID,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
	}
}

/* ===================== Responses ===================== */

type InvoiceItemResponse struct {
	InvoiceItemID uuid.UUID       `json:"invoice_item_id"`
	ServiceID     uuid.UUID       `json:"service_id"`
	Description   *string         `json:"description,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

type InvoiceResponse struct {
	InvoiceID      uuid.UUID             `json:"invoice_id"`
	InvoiceNumber  string                `json:"invoice_number"`
	PatientID      uuid.UUID             `json:"patient_id"`
	Status         string                `json:"status"`
	IssueDate      string                `json:"issue_date"`
	DueDate        string                `json:"due_date"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"`
	BalanceDue     decimal.Decimal       `json:"balance_due"`
	Notes          *string               `json:"notes,omitempty"`
	Items          []InvoiceItemResponse `json:"items,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

func FromItemModel(m *invoiceModel.InvoiceItem) InvoiceItemResponse {
	return InvoiceItemResponse{
		InvoiceItemID: m.InvoiceItemID,
		ServiceID:     m.InvoiceItemServiceID,
		Description:   m.InvoiceItemDescription,
		Quantity:      m.InvoiceItemQuantity,
		UnitPrice:     m.InvoiceItemUnitPrice,
		TotalPrice:    m.InvoiceItemTotalPrice,
	}
}

func FromInvoiceModel(m *invoiceModel.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		InvoiceID:      m.InvoiceID,
		InvoiceNumber:  m.InvoiceNumber,
		PatientID:      m.InvoicePatientID,
		Status:         m.InvoiceStatus,
		IssueDate:      m.InvoiceIssueDate.Format("2006-01-02"),
		DueDate:        m.InvoiceDueDate.Format("2006-01-02"),
		Subtotal:       m.InvoiceSubtotal,
		TaxAmount:      m.InvoiceTaxAmount,
		DiscountAmount: m.InvoiceDiscountAmount,
		TotalAmount:    m.InvoiceTotalAmount,
		AmountPaid:     m.InvoiceAmountPaid,
		BalanceDue:     m.InvoiceBalanceDue,
		Notes:          m.InvoiceNotes,
		CreatedAt:      m.CreatedAt,
	}
	for i := range m.Items {
		resp.Items = append(resp.Items, FromItemModel(&m.Items[i]))
	}
	return resp
}
