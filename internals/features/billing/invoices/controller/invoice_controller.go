package controller

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"afyacare_backend/internals/constants"
	"afyacare_backend/internals/features/billing/invoices/dto"
	"afyacare_backend/internals/features/billing/invoices/model"
	invoiceService "afyacare_backend/internals/features/billing/invoices/service"
	helper "afyacare_backend/internals/helpers"
)

type InvoiceController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewInvoiceController(db *gorm.DB) *InvoiceController {
	return &InvoiceController{DB: db, Validator: validator.New()}
}

// CreateInvoice creates a PENDING invoice with its initial line items.
func (h *InvoiceController) CreateInvoice(c *fiber.Ctx) error {
	var req dto.CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}
	if req.TaxAmount != nil && req.TaxAmount.Sign() < 0 {
		return helper.Error(c, fiber.StatusBadRequest, "tax_amount must be >= 0")
	}
	if req.DiscountAmount != nil && req.DiscountAmount.Sign() < 0 {
		return helper.Error(c, fiber.StatusBadRequest, "discount_amount must be >= 0")
	}

	var createdBy *uuid.UUID
	if id, ok := c.Locals("user_id").(uuid.UUID); ok {
		createdBy = &id
	}

	inv, err := req.ToModel(createdBy, time.Now())
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "due_date must be YYYY-MM-DD")
	}

	if err := invoiceService.CreateInvoice(h.DB, inv, req.ToNewItems()); err != nil {
		return helper.FromAppError(c, err)
	}

	if err := h.DB.Preload("Items").First(inv, "invoice_id = ?", inv.InvoiceID).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load invoice")
	}
	resp := dto.FromInvoiceModel(inv)
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Invoice created", resp)
}

// ListInvoices supports ?status=, ?patient_id=, ?search= (invoice number)
// and paging. Items are not expanded on the list view.
func (h *InvoiceController) ListInvoices(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.Model(&model.Invoice{})

	if status := c.Query("status"); status != "" {
		q = q.Where("invoice_status = ?", status)
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		id, err := uuid.Parse(patientID)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "patient_id must be a UUID")
		}
		q = q.Where("invoice_patient_id = ?", id)
	}
	if search := c.Query("search"); search != "" {
		q = q.Where("invoice_number ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to count invoices")
	}

	var invoices []model.Invoice
	if err := q.Order("invoice_created_at DESC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&invoices).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list invoices")
	}

	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, dto.FromInvoiceModel(&invoices[i]))
	}

	return helper.Success(c, "Invoices fetched", fiber.Map{
		"items":      items,
		"pagination": helper.BuildPagination(total, paging.Page, paging.PerPage),
	})
}

// GetInvoiceByID returns the invoice with its items.
func (h *InvoiceController) GetInvoiceByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid invoice id")
	}

	var inv model.Invoice
	if err := h.DB.Preload("Items").First(&inv, "invoice_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Invoice not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load invoice")
	}

	return helper.Success(c, "Invoice fetched", dto.FromInvoiceModel(&inv))
}

// AddItem appends a line item and returns the refreshed invoice.
func (h *InvoiceController) AddItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid invoice id")
	}

	var req dto.AddInvoiceItemRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	if _, err := invoiceService.AddItem(h.DB, id, req.ToNewItem()); err != nil {
		return helper.FromAppError(c, err)
	}

	var inv model.Invoice
	if err := h.DB.Preload("Items").First(&inv, "invoice_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load invoice")
	}
	return helper.Success(c, "Item added", dto.FromInvoiceModel(&inv))
}

// CancelInvoice moves the invoice to CANCELLED when the transition is legal.
func (h *InvoiceController) CancelInvoice(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid invoice id")
	}

	role, _ := c.Locals("user_role").(string)
	if role != constants.RoleAdmin && role != constants.RoleReceptionist {
		return helper.Error(c, fiber.StatusForbidden, "Insufficient role")
	}

	inv, err := invoiceService.Cancel(h.DB, id)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Invoice cancelled", dto.FromInvoiceModel(inv))
}
