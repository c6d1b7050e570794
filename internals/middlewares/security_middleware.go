// file: internals/middlewares/security_middleware.go
package middlewares

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	secmodel "afyacare_backend/internals/features/security/model"
)

/* =========================================================
   Blocked-IP check (cached)
========================================================= */

const blockedIPCacheTTL = 5 * time.Minute

type blockedEntry struct {
	blocked   bool
	expiresAt time.Time
}

var (
	blockedIPCache   = map[string]blockedEntry{}
	blockedIPCacheMu sync.Mutex
)

// IPBlockMiddleware rejects requests from blacklisted IPs.
// Lookups hit an in-process cache first, the blocked_ips table on miss.
func IPBlockMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		if isIPBlocked(db, ip) {
			log.Printf("[SECURITY] blocked request from blacklisted IP %s", ip)
			logAudit(db, c, nil, secmodel.AuditActionDenied, fiber.StatusForbidden, map[string]any{"reason": "blocked_ip"})
			return c.Status(fiber.StatusForbidden).SendString("Access denied")
		}
		return c.Next()
	}
}

func isIPBlocked(db *gorm.DB, ip string) bool {
	now := time.Now()

	blockedIPCacheMu.Lock()
	if e, ok := blockedIPCache[ip]; ok && now.Before(e.expiresAt) {
		blockedIPCacheMu.Unlock()
		return e.blocked
	}
	blockedIPCacheMu.Unlock()

	var row secmodel.BlockedIP
	blocked := false
	if err := db.Where("blocked_ip_address = ? AND blocked_ip_is_active = TRUE", ip).
		First(&row).Error; err == nil {
		blocked = row.IsEffective(now)
	}

	blockedIPCacheMu.Lock()
	blockedIPCache[ip] = blockedEntry{blocked: blocked, expiresAt: now.Add(blockedIPCacheTTL)}
	blockedIPCacheMu.Unlock()

	return blocked
}

// ResetBlockedIPCache drops the in-process cache (used after admin edits).
func ResetBlockedIPCache() {
	blockedIPCacheMu.Lock()
	blockedIPCache = map[string]blockedEntry{}
	blockedIPCacheMu.Unlock()
}

/* =========================================================
   Audit trail for mutating requests
========================================================= */

// AuditMiddleware records every mutating request (POST/PUT/PATCH/DELETE)
// after the handler ran, including the response status.
func AuditMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return err
		}

		var userID *uuid.UUID
		if id, ok := c.Locals("user_id").(uuid.UUID); ok && id != uuid.Nil {
			userID = &id
		}

		action := secmodel.AuditActionUpdate
		switch c.Method() {
		case fiber.MethodPost:
			action = secmodel.AuditActionCreate
		case fiber.MethodDelete:
			action = secmodel.AuditActionDelete
		}

		logAudit(db, c, userID, action, c.Response().StatusCode(), nil)
		return err
	}
}

func logAudit(db *gorm.DB, c *fiber.Ctx, userID *uuid.UUID, action string, status int, meta map[string]any) {
	var metaJSON datatypes.JSON
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			metaJSON = datatypes.JSON(b)
		}
	}

	entry := secmodel.AuditLog{
		AuditLogUserID:   userID,
		AuditLogAction:   action,
		AuditLogMethod:   c.Method(),
		AuditLogPath:     c.Path(),
		AuditLogIP:       c.IP(),
		AuditLogStatus:   status,
		AuditLogMetadata: metaJSON,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[SECURITY] audit insert failed: %v", err)
	}
}
