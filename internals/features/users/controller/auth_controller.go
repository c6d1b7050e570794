// file: internals/features/users/controller/auth_controller.go
package controller

import (
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"afyacare_backend/internals/configs"
	"afyacare_backend/internals/features/users/dto"
	"afyacare_backend/internals/features/users/model"
	helper "afyacare_backend/internals/helpers"
)

const accessTokenTTL = 15 * time.Minute
const refreshTokenTTL = 7 * 24 * time.Hour

type AuthController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db, Validator: validator.New()}
}

// POST /api/auth/register
func (h *AuthController) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.UserPassword), bcrypt.DefaultCost)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "hash failed")
	}

	m := req.ToModel()
	m.UserPassword = string(hash)

	if err := h.DB.WithContext(c.Context()).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return helper.Error(c, fiber.StatusConflict, "email already registered")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "create user failed: "+err.Error())
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "User registered", dto.FromModel(m))
}

// POST /api/auth/login
func (h *AuthController) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	var u model.User
	if err := h.DB.WithContext(c.Context()).
		First(&u, "user_email = ?", req.UserEmail).Error; err != nil {
		return helper.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !u.UserIsActive {
		return helper.Error(c, fiber.StatusForbidden, "account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.UserPassword), []byte(req.UserPassword)); err != nil {
		return helper.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	now := time.Now()
	u.UserLastLoginAt = &now
	if err := h.DB.WithContext(c.Context()).
		Model(&u).Update("user_last_login_at", now).Error; err != nil {
		log.Printf("[WARN] update last_login failed: %v", err)
	}

	resp, err := h.issueTokens(&u)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.Success(c, "Login successful", resp)
}

// POST /api/auth/refresh
func (h *AuthController) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(configs.JWTRefreshSecret), nil
	}); err != nil {
		return helper.Error(c, fiber.StatusUnauthorized, "invalid refresh token")
	}

	userIDStr, _ := claims["user_id"].(string)
	var u model.User
	if err := h.DB.WithContext(c.Context()).
		First(&u, "user_id = ? AND user_is_active = TRUE", userIDStr).Error; err != nil {
		return helper.Error(c, fiber.StatusUnauthorized, "user not found or inactive")
	}

	resp, err := h.issueTokens(&u)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.Success(c, "Token refreshed", resp)
}

// GET /api/auth/me
func (h *AuthController) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)
	var u model.User
	if err := h.DB.WithContext(c.Context()).
		First(&u, "user_id = ?", userID).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "user not found")
	}
	return helper.Success(c, "OK", dto.FromModel(&u))
}

func (h *AuthController) issueTokens(u *model.User) (dto.TokenResponse, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.UserID.String(),
		"role":    u.UserRole,
		"exp":     now.Add(accessTokenTTL).Unix(),
		"iat":     now.Unix(),
	})
	accessStr, err := access.SignedString([]byte(configs.JWTSecret))
	if err != nil {
		return dto.TokenResponse{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.UserID.String(),
		"exp":     now.Add(refreshTokenTTL).Unix(),
		"iat":     now.Unix(),
	})
	refreshStr, err := refresh.SignedString([]byte(configs.JWTRefreshSecret))
	if err != nil {
		return dto.TokenResponse{}, err
	}

	return dto.TokenResponse{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
		User:         dto.FromModel(u),
	}, nil
}
