// file: internals/features/billing/services/controller/service_controller.go
package controller

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"afyacare_backend/internals/features/billing/services/dto"
	"afyacare_backend/internals/features/billing/services/model"
	helper "afyacare_backend/internals/helpers"
)

type ServiceController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewServiceController(db *gorm.DB) *ServiceController {
	return &ServiceController{DB: db, Validator: validator.New()}
}

// POST /api/billing/services
func (h *ServiceController) CreateService(c *fiber.Ctx) error {
	var req dto.CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationFailed(c, err)
	}
	if err := req.Validate(); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, err.Error())
	}

	m := req.ToModel()
	if err := h.DB.WithContext(c.Context()).Create(m).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return helper.Error(c, fiber.StatusConflict, "service code already exists")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "create service failed: "+err.Error())
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Service created", dto.FromModel(m))
}

// GET /api/billing/services
func (h *ServiceController) ListServices(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.WithContext(c.Context()).Model(&model.Service{})

	// non-admins only see the active catalog
	if role, _ := c.Locals("user_role").(string); role != "ADMIN" {
		q = q.Where("service_is_active = TRUE")
	} else if active := c.Query("is_active"); active != "" {
		q = q.Where("service_is_active = ?", active == "true")
	}
	if cat := c.Query("category"); cat != "" {
		q = q.Where("service_category = ?", cat)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("service_code ILIKE ? OR service_name ILIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	var rows []model.Service
	if err := q.Order("service_category, service_name").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&rows).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	out := make([]dto.ServiceResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.FromModel(&rows[i]))
	}
	return helper.Success(c, "OK", fiber.Map{
		"services":   out,
		"pagination": helper.BuildPagination(total, paging.Page, paging.PerPage),
	})
}

// GET /api/billing/services/:id
func (h *ServiceController) GetServiceByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid id")
	}
	var m model.Service
	if err := h.DB.WithContext(c.Context()).First(&m, "service_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "service not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.Success(c, "OK", dto.FromModel(&m))
}

// PATCH /api/billing/services/:id
func (h *ServiceController) PatchService(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid id")
	}
	var m model.Service
	if err := h.DB.WithContext(c.Context()).First(&m, "service_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "service not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	var patch dto.UpdateServiceRequest
	if err := c.BodyParser(&patch); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(patch); err != nil {
		return helper.ValidationFailed(c, err)
	}
	if err := patch.Apply(&m); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.DB.WithContext(c.Context()).Save(&m).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "save failed: "+err.Error())
	}
	return helper.Success(c, "Service updated", dto.FromModel(&m))
}

// DELETE /api/billing/services/:id — soft deactivate only
func (h *ServiceController) DeactivateService(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid id")
	}
	res := h.DB.WithContext(c.Context()).
		Model(&model.Service{}).
		Where("service_id = ?", id).
		Update("service_is_active", false)
	if res.Error != nil {
		return helper.Error(c, fiber.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return helper.Error(c, fiber.StatusNotFound, "service not found")
	}
	return helper.Success(c, "Service deactivated", nil)
}
