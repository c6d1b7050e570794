package controller

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"afyacare_backend/internals/features/security/model"
	helper "afyacare_backend/internals/helpers"
	"afyacare_backend/internals/middlewares"
)

type SecurityController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewSecurityController(db *gorm.DB) *SecurityController {
	return &SecurityController{DB: db, Validator: validator.New()}
}

/* ===================== Audit logs ===================== */

// ListAuditLogs supports ?user_id=, ?action=, ?from=, ?to= and paging.
func (h *SecurityController) ListAuditLogs(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 50, 200)

	q := h.DB.Model(&model.AuditLog{})
	if userID := c.Query("user_id"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "user_id must be a UUID")
		}
		q = q.Where("audit_log_user_id = ?", id)
	}
	if action := c.Query("action"); action != "" {
		q = q.Where("audit_log_action = ?", action)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		q = q.Where("audit_log_created_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		q = q.Where("audit_log_created_at < ?", t.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to count audit logs")
	}

	var logs []model.AuditLog
	if err := q.Order("audit_log_created_at DESC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&logs).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list audit logs")
	}

	return helper.Success(c, "Audit logs fetched", fiber.Map{
		"items":      logs,
		"pagination": helper.BuildPagination(total, paging.Page, paging.PerPage),
	})
}

/* ===================== Blocked IPs ===================== */

type blockIPRequest struct {
	IPAddress string  `json:"ip_address" validate:"required,ip"`
	Reason    *string `json:"reason,omitempty" validate:"omitempty,max=255"`
	ExpiresAt *string `json:"expires_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// BlockIP adds (or refreshes) an IP block. Takes effect within the
// block cache TTL.
func (h *SecurityController) BlockIP(c *fiber.Ctx) error {
	var req blockIPRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	blocked := model.BlockedIP{
		BlockedIPAddress:  req.IPAddress,
		BlockedIPIsActive: true,
	}
	if req.Reason != nil {
		blocked.BlockedIPReason = *req.Reason
	}
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "expires_at must be RFC3339")
		}
		blocked.BlockedIPExpires = &t
	}

	if err := h.DB.Create(&blocked).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return helper.Error(c, fiber.StatusConflict, "IP is already blocked")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to block IP")
	}

	middlewares.ResetBlockedIPCache()
	return helper.SuccessWithCode(c, fiber.StatusCreated, "IP blocked", blocked)
}

func (h *SecurityController) ListBlockedIPs(c *fiber.Ctx) error {
	var blocked []model.BlockedIP
	if err := h.DB.Order("blocked_ip_created_at DESC").Find(&blocked).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list blocked IPs")
	}
	return helper.Success(c, "Blocked IPs fetched", blocked)
}

func (h *SecurityController) UnblockIP(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid id")
	}

	res := h.DB.Delete(&model.BlockedIP{}, "blocked_ip_id = ?", id)
	if res.Error != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to unblock IP")
	}
	if res.RowsAffected == 0 {
		return helper.Error(c, fiber.StatusNotFound, "Blocked IP not found")
	}

	middlewares.ResetBlockedIPCache()
	return helper.Success(c, "IP unblocked", nil)
}
