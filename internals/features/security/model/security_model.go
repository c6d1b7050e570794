package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ===================== Audit log ===================== */

const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
	AuditActionLogin  = "LOGIN"
	AuditActionDenied = "DENIED"
)

type AuditLog struct {
	AuditLogID uuid.UUID `gorm:"column:audit_log_id;type:uuid;primaryKey" json:"audit_log_id"`

	AuditLogUserID *uuid.UUID `gorm:"column:audit_log_user_id;type:uuid;index" json:"audit_log_user_id,omitempty"`

	AuditLogAction   string         `gorm:"column:audit_log_action;type:varchar(20);not null;index" json:"audit_log_action"`
	AuditLogMethod   string         `gorm:"column:audit_log_method;type:varchar(10);not null" json:"audit_log_method"`
	AuditLogPath     string         `gorm:"column:audit_log_path;type:varchar(300);not null" json:"audit_log_path"`
	AuditLogIP       string         `gorm:"column:audit_log_ip;type:varchar(45);not null;index" json:"audit_log_ip"`
	AuditLogStatus   int            `gorm:"column:audit_log_status;not null" json:"audit_log_status"`
	AuditLogMetadata datatypes.JSON `gorm:"column:audit_log_metadata;type:jsonb" json:"audit_log_metadata,omitempty"`

	AuditLogCreatedAt time.Time `gorm:"column:audit_log_created_at;autoCreateTime;index" json:"audit_log_created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.AuditLogID == uuid.Nil {
		a.AuditLogID = uuid.New()
	}
	return nil
}

/* ===================== Blocked IP ===================== */

type BlockedIP struct {
	BlockedIPID uuid.UUID `gorm:"column:blocked_ip_id;type:uuid;primaryKey" json:"blocked_ip_id"`

	BlockedIPAddress  string     `gorm:"column:blocked_ip_address;type:varchar(45);uniqueIndex;not null" json:"blocked_ip_address"`
	BlockedIPReason   string     `gorm:"column:blocked_ip_reason;type:varchar(300)" json:"blocked_ip_reason"`
	BlockedIPIsActive bool       `gorm:"column:blocked_ip_is_active;not null;default:true" json:"blocked_ip_is_active"`
	BlockedIPExpires  *time.Time `gorm:"column:blocked_ip_expires_at" json:"blocked_ip_expires_at,omitempty"`

	BlockedIPCreatedAt time.Time `gorm:"column:blocked_ip_created_at;autoCreateTime" json:"blocked_ip_created_at"`
	BlockedIPUpdatedAt time.Time `gorm:"column:blocked_ip_updated_at;autoUpdateTime" json:"blocked_ip_updated_at"`
}

func (BlockedIP) TableName() string { return "blocked_ips" }

func (b *BlockedIP) BeforeCreate(tx *gorm.DB) error {
	if b.BlockedIPID == uuid.Nil {
		b.BlockedIPID = uuid.New()
	}
	return nil
}

// IsEffective reports whether the block currently applies.
func (b *BlockedIP) IsEffective(now time.Time) bool {
	if !b.BlockedIPIsActive {
		return false
	}
	if b.BlockedIPExpires != nil && b.BlockedIPExpires.Before(now) {
		return false
	}
	return true
}
