package controller

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"afyacare_backend/internals/features/labs/dto"
	"afyacare_backend/internals/features/labs/model"
	helper "afyacare_backend/internals/helpers"
)

type LabController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewLabController(db *gorm.DB) *LabController {
	return &LabController{DB: db, Validator: validator.New()}
}

/* ===================== Test type catalog ===================== */

func (h *LabController) CreateTestType(c *fiber.Ctx) error {
	var req dto.CreateTestTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}
	if req.Price.Sign() < 0 {
		return helper.Error(c, fiber.StatusBadRequest, "price must be >= 0")
	}

	tt := req.ToModel()
	if err := h.DB.Create(tt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return helper.Error(c, fiber.StatusConflict, "Test type code already exists")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to create test type")
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Test type created", tt)
}

func (h *LabController) ListTestTypes(c *fiber.Ctx) error {
	q := h.DB.Model(&model.TestType{})
	if c.Query("active") != "false" {
		q = q.Where("test_type_is_active = ?", true)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("test_type_category = ?", category)
	}

	var types []model.TestType
	if err := q.Order("test_type_name ASC").Find(&types).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list test types")
	}
	return helper.Success(c, "Test types fetched", types)
}

/* ===================== Orders ===================== */

func (h *LabController) CreateOrder(c *fiber.Ctx) error {
	var req dto.CreateLabOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	orderedBy, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return helper.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var tt model.TestType
	if err := h.DB.First(&tt, "test_type_id = ?", req.TestTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Test type not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load test type")
	}
	if !tt.TestTypeIsActive {
		return helper.Error(c, fiber.StatusBadRequest, "Test type is not active")
	}

	order := model.LabOrder{
		LabOrderPatientID:  req.PatientID,
		LabOrderTestTypeID: req.TestTypeID,
		LabOrderOrderedBy:  orderedBy,
		LabOrderStatus:     model.LabOrderStatusPending,
		LabOrderPriority:   model.LabPriorityRoutine,
		LabOrderNotes:      req.Notes,
	}
	if req.Priority != nil {
		order.LabOrderPriority = *req.Priority
	}
	if err := h.DB.Create(&order).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to create lab order")
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Lab order created", order)
}

func (h *LabController) ListOrders(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.Model(&model.LabOrder{})
	if status := c.Query("status"); status != "" {
		q = q.Where("lab_order_status = ?", status)
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		id, err := uuid.Parse(patientID)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "patient_id must be a UUID")
		}
		q = q.Where("lab_order_patient_id = ?", id)
	}
	if priority := c.Query("priority"); priority != "" {
		q = q.Where("lab_order_priority = ?", priority)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to count lab orders")
	}

	var orders []model.LabOrder
	if err := q.Preload("TestType").Preload("Result").
		Order("lab_order_created_at DESC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&orders).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list lab orders")
	}

	return helper.Success(c, "Lab orders fetched", fiber.Map{
		"items":      orders,
		"pagination": helper.BuildPagination(total, paging.Page, paging.PerPage),
	})
}

func (h *LabController) GetOrderByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid lab order id")
	}

	var order model.LabOrder
	if err := h.DB.Preload("TestType").Preload("Result").
		First(&order, "lab_order_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Lab order not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load lab order")
	}
	return helper.Success(c, "Lab order fetched", order)
}

/* ===================== Workflow transitions ===================== */

// MarkCollected moves PENDING -> COLLECTED and stamps the collection time.
func (h *LabController) MarkCollected(c *fiber.Ctx) error {
	return h.advance(c, model.LabOrderStatusCollected, func(updates map[string]interface{}) {
		updates["lab_order_collected_at"] = time.Now()
	})
}

// MarkInProgress moves COLLECTED -> IN_PROGRESS.
func (h *LabController) MarkInProgress(c *fiber.Ctx) error {
	return h.advance(c, model.LabOrderStatusInProgress, nil)
}

// EnterResult records the result and moves IN_PROGRESS -> RESULTED.
func (h *LabController) EnterResult(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid lab order id")
	}

	var req dto.EnterResultRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	enteredBy, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return helper.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var order model.LabOrder
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "lab_order_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.NewNotFoundError("lab order")
			}
			return err
		}
		if !order.CanAdvanceTo(model.LabOrderStatusResulted) {
			return helper.NewInvalidStateError("cannot enter results for a %s order", order.LabOrderStatus)
		}

		result := model.LabResult{
			LabResultOrderID:    order.LabOrderID,
			LabResultValue:      req.Value,
			LabResultUnit:       req.Unit,
			LabResultIsAbnormal: req.IsAbnormal,
			LabResultNotes:      req.Notes,
			LabResultEnteredBy:  enteredBy,
		}
		if err := tx.Create(&result).Error; err != nil {
			return err
		}

		now := time.Now()
		order.LabOrderStatus = model.LabOrderStatusResulted
		order.LabOrderResultedAt = &now
		return tx.Model(&model.LabOrder{}).
			Where("lab_order_id = ?", order.LabOrderID).
			Updates(map[string]interface{}{
				"lab_order_status":      model.LabOrderStatusResulted,
				"lab_order_resulted_at": now,
			}).Error
	})
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Result entered", order)
}

// ReviewOrder moves RESULTED -> REVIEWED and records the reviewer.
func (h *LabController) ReviewOrder(c *fiber.Ctx) error {
	reviewedBy, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return helper.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	return h.advance(c, model.LabOrderStatusReviewed, func(updates map[string]interface{}) {
		updates["lab_order_reviewed_by"] = reviewedBy
	})
}

// CancelOrder cancels an order that has no results yet.
func (h *LabController) CancelOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid lab order id")
	}

	var order model.LabOrder
	if err := h.DB.First(&order, "lab_order_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Lab order not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load lab order")
	}
	if !order.CanCancel() {
		return helper.FromAppError(c, helper.NewInvalidStateError("cannot cancel a %s order", order.LabOrderStatus))
	}

	order.LabOrderStatus = model.LabOrderStatusCancelled
	if err := h.DB.Model(&model.LabOrder{}).
		Where("lab_order_id = ?", order.LabOrderID).
		Update("lab_order_status", model.LabOrderStatusCancelled).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to cancel lab order")
	}
	return helper.Success(c, "Lab order cancelled", order)
}

// advance applies one legal forward transition, with optional extra columns.
func (h *LabController) advance(c *fiber.Ctx, next string, extra func(map[string]interface{})) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid lab order id")
	}

	var order model.LabOrder
	if err := h.DB.First(&order, "lab_order_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Lab order not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load lab order")
	}
	if !order.CanAdvanceTo(next) {
		return helper.FromAppError(c, helper.NewInvalidStateError("cannot move a %s order to %s", order.LabOrderStatus, next))
	}

	updates := map[string]interface{}{"lab_order_status": next}
	if extra != nil {
		extra(updates)
	}
	if err := h.DB.Model(&model.LabOrder{}).
		Where("lab_order_id = ? AND lab_order_status = ?", order.LabOrderID, order.LabOrderStatus).
		Updates(updates).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to update lab order")
	}
	order.LabOrderStatus = next
	return helper.Success(c, "Lab order updated", order)
}
