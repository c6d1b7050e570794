package dto

import (
	"time"

	"github.com/google/uuid"

	"afyacare_backend/internals/features/users/model"
)

/* =========================================================
   REQUEST DTOs
========================================================= */

type RegisterRequest struct {
	UserEmail    string  `json:"user_email" validate:"required,email"`
	UserPassword string  `json:"user_password" validate:"required,min=8"`
	UserFullName string  `json:"user_full_name" validate:"required,max=200"`
	UserRole     string  `json:"user_role" validate:"required,oneof=ADMIN DOCTOR NURSE LAB_TECH RECEPTIONIST"`
	UserPhone    *string `json:"user_phone,omitempty" validate:"omitempty,max=20"`
}

func (r *RegisterRequest) ToModel() *model.User {
	return &model.User{
		UserEmail:    r.UserEmail,
		UserFullName: r.UserFullName,
		UserRole:     r.UserRole,
		UserPhone:    r.UserPhone,
		UserIsActive: true,
	}
}

type LoginRequest struct {
	UserEmail    string `json:"user_email" validate:"required,email"`
	UserPassword string `json:"user_password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateUserRequest struct {
	UserFullName *string `json:"user_full_name,omitempty" validate:"omitempty,max=200"`
	UserRole     *string `json:"user_role,omitempty" validate:"omitempty,oneof=ADMIN DOCTOR NURSE LAB_TECH RECEPTIONIST"`
	UserPhone    *string `json:"user_phone,omitempty" validate:"omitempty,max=20"`
	UserIsActive *bool   `json:"user_is_active,omitempty"`
}

func (r *UpdateUserRequest) Apply(m *model.User) {
	if r.UserFullName != nil {
		m.UserFullName = *r.UserFullName
	}
	if r.UserRole != nil {
		m.UserRole = *r.UserRole
	}
	if r.UserPhone != nil {
		m.UserPhone = r.UserPhone
	}
	if r.UserIsActive != nil {
		m.UserIsActive = *r.UserIsActive
	}
}

/* =========================================================
   RESPONSE DTOs
========================================================= */

type UserResponse struct {
	UserID          uuid.UUID  `json:"user_id"`
	UserEmail       string     `json:"user_email"`
	UserFullName    string     `json:"user_full_name"`
	UserRole        string     `json:"user_role"`
	UserPhone       *string    `json:"user_phone,omitempty"`
	UserIsActive    bool       `json:"user_is_active"`
	UserLastLoginAt *time.Time `json:"user_last_login_at,omitempty"`
	UserCreatedAt   time.Time  `json:"user_created_at"`
}

func FromModel(m *model.User) UserResponse {
	return UserResponse{
		UserID:          m.UserID,
		UserEmail:       m.UserEmail,
		UserFullName:    m.UserFullName,
		UserRole:        m.UserRole,
		UserPhone:       m.UserPhone,
		UserIsActive:    m.UserIsActive,
		UserLastLoginAt: m.UserLastLoginAt,
		UserCreatedAt:   m.CreatedAt,
	}
}

type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}
