package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */

const (
	UserRoleAdmin        = "ADMIN"
	UserRoleDoctor       = "DOCTOR"
	UserRoleNurse        = "NURSE"
	UserRoleLabTech      = "LAB_TECH"
	UserRoleReceptionist = "RECEPTIONIST"
)

/* ===================== Model ===================== */

type User struct {
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`

	UserEmail    string `gorm:"column:user_email;type:varchar(255);uniqueIndex;not null" json:"user_email"`
	UserPassword string `gorm:"column:user_password;type:varchar(255);not null" json:"-"`

	UserFullName string  `gorm:"column:user_full_name;type:varchar(200);not null" json:"user_full_name"`
	UserRole     string  `gorm:"column:user_role;type:varchar(20);not null;default:'RECEPTIONIST';index" json:"user_role"`
	UserPhone    *string `gorm:"column:user_phone;type:varchar(20)" json:"user_phone,omitempty"`

	UserIsActive bool `gorm:"column:user_is_active;not null;default:true" json:"user_is_active"`

	UserLastLoginAt *time.Time `gorm:"column:user_last_login_at" json:"user_last_login_at,omitempty"`

	CreatedAt time.Time      `gorm:"column:user_created_at;autoCreateTime" json:"user_created_at"`
	UpdatedAt time.Time      `gorm:"column:user_updated_at;autoUpdateTime" json:"user_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:user_deleted_at;index" json:"user_deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.UserRole == UserRoleAdmin }
