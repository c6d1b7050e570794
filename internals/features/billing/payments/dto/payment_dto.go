package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"afyacare_backend/internals/features/billing/payments/model"
)

/* ===================== Requests ===================== */

type InitiateMpesaRequest struct {
	InvoiceID   uuid.UUID        `json:"invoice_id" validate:"required"`
	PhoneNumber string           `json:"phone_number" validate:"required,min=9,max=15"`
	Amount      *decimal.Decimal `json:"amount,omitempty"` // omitted pays the full balance due
}

type ManualPaymentRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required,oneof=CASH CARD INSURANCE BANK"`
	Reference *string         `json:"reference,omitempty" validate:"omitempty,max=100"`
	Notes     *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

/* ===================== Responses ===================== */

type PaymentResponse struct {
	PaymentID         uuid.UUID       `json:"payment_id"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	PhoneNumber       *string         `json:"phone_number,omitempty"`
	MerchantRequestID *string         `json:"merchant_request_id,omitempty"`
	CheckoutRequestID *string         `json:"checkout_request_id,omitempty"`
	MpesaReceipt      *string         `json:"mpesa_receipt,omitempty"`
	TransactionDate   *time.Time      `json:"transaction_date,omitempty"`
	ResultCode        *int            `json:"result_code,omitempty"`
	ResultDesc        *string         `json:"result_desc,omitempty"`
	Reference         *string         `json:"reference,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func FromModel(m *model.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:         m.PaymentID,
		InvoiceID:         m.PaymentInvoiceID,
		Amount:            m.PaymentAmount,
		Method:            m.PaymentMethod,
		Status:            m.PaymentStatus,
		PhoneNumber:       m.PaymentPhoneNumber,
		MerchantRequestID: m.PaymentMerchantRequestID,
		CheckoutRequestID: m.PaymentCheckoutRequestID,
		MpesaReceipt:      m.PaymentMpesaReceipt,
		TransactionDate:   m.PaymentTransactionDate,
		ResultCode:        m.PaymentResultCode,
		ResultDesc:        m.PaymentResultDesc,
		Reference:         m.PaymentReference,
		Notes:             m.PaymentNotes,
		CreatedAt:         m.CreatedAt,
	}
}
