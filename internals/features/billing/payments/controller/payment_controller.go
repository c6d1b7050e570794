package controller

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"afyacare_backend/internals/features/billing/payments/dto"
	"afyacare_backend/internals/features/billing/payments/model"
	"afyacare_backend/internals/features/billing/payments/service"
	helper "afyacare_backend/internals/helpers"
)

type PaymentController struct {
	DB         *gorm.DB
	Settlement *service.SettlementService
	Validator  *validator.Validate
}

func NewPaymentController(db *gorm.DB, settlement *service.SettlementService) *PaymentController {
	return &PaymentController{DB: db, Settlement: settlement, Validator: validator.New()}
}

/* ===================== M-Pesa ===================== */

// InitiateMpesa sends an STK push for an invoice.
func (h *PaymentController) InitiateMpesa(c *fiber.Ctx) error {
	var req dto.InitiateMpesaRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	var initiatedBy *uuid.UUID
	if id, ok := c.Locals("user_id").(uuid.UUID); ok {
		initiatedBy = &id
	}

	payment, err := h.Settlement.InitiateMpesa(c.Context(), service.InitiateMpesaInput{
		InvoiceID:   req.InvoiceID,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		InitiatedBy: initiatedBy,
	})
	if err != nil {
		return helper.FromAppError(c, err)
	}

	msg := "STK push sent, awaiting confirmation"
	if payment.PaymentStatus == model.PaymentStatusFailed {
		msg = "STK push failed"
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, msg, dto.FromModel(payment))
}

// MpesaCallback receives gateway notifications. The gateway retries on
// anything but an ack, so this handler always returns ResultCode 0,
// even for payloads we cannot use.
func (h *PaymentController) MpesaCallback(c *fiber.Ctx) error {
	if err := h.Settlement.ApplyCallback(c.Body()); err != nil {
		log.Printf("[ERROR] mpesa callback not applied: %v", err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}

// QueryPaymentStatus returns the payment, reconciling against the
// gateway first when the payment is still open.
func (h *PaymentController) QueryPaymentStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid payment id")
	}

	payment, err := h.Settlement.QueryStatus(c.Context(), id)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Payment status fetched", dto.FromModel(payment))
}

/* ===================== Manual payments ===================== */

// RecordManualPayment settles a cash/card/insurance/bank payment.
func (h *PaymentController) RecordManualPayment(c *fiber.Ctx) error {
	var req dto.ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	var processedBy *uuid.UUID
	if id, ok := c.Locals("user_id").(uuid.UUID); ok {
		processedBy = &id
	}

	payment, err := h.Settlement.RecordManualPayment(service.ManualPaymentInput{
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		Notes:       req.Notes,
		ProcessedBy: processedBy,
	})
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Payment recorded", dto.FromModel(payment))
}

/* ===================== Reads ===================== */

// ListPayments supports ?invoice_id=, ?status=, ?method= and paging.
func (h *PaymentController) ListPayments(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.Model(&model.Payment{})
	if invoiceID := c.Query("invoice_id"); invoiceID != "" {
		id, err := uuid.Parse(invoiceID)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "invoice_id must be a UUID")
		}
		q = q.Where("payment_invoice_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("payment_status = ?", status)
	}
	if method := c.Query("method"); method != "" {
		q = q.Where("payment_method = ?", method)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to count payments")
	}

	var payments []model.Payment
	if err := q.Order("payment_created_at DESC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&payments).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list payments")
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, dto.FromModel(&payments[i]))
	}

	return helper.Success(c, "Payments fetched", fiber.Map{
		"items":      items,
		"pagination": helper.BuildPagination(total, paging.Page, paging.PerPage),
	})
}

func (h *PaymentController) GetPaymentByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid payment id")
	}

	var payment model.Payment
	if err := h.DB.First(&payment, "payment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Payment not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load payment")
	}
	return helper.Success(c, "Payment fetched", dto.FromModel(&payment))
}

// ListInvoicePayments returns all payments recorded against one invoice.
func (h *PaymentController) ListInvoicePayments(c *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid invoice id")
	}

	var payments []model.Payment
	if err := h.DB.Where("payment_invoice_id = ?", invoiceID).
		Order("payment_created_at DESC").
		Find(&payments).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list payments")
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, dto.FromModel(&payments[i]))
	}
	return helper.Success(c, "Invoice payments fetched", items)
}
