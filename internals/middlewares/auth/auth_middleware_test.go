package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"afyacare_backend/internals/configs"
	usermodel "afyacare_backend/internals/features/users/model"
)

func newAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&usermodel.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string, active bool) *usermodel.User {
	t.Helper()
	u := &usermodel.User{
		UserEmail:    uuid.NewString()[:8] + "@afyacare.test",
		UserPassword: "hashed",
		UserFullName: "Test User",
		UserRole:     role,
		UserIsActive: active,
	}
	require.NoError(t, db.Create(u).Error)
	if !active {
		// the column default would swallow the zero value on insert
		require.NoError(t, db.Model(u).UpdateColumn("user_is_active", false).Error)
	}
	return u
}

func signToken(t *testing.T, u *usermodel.User, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.UserID.String(),
		"role":    u.UserRole,
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// newGuardedApp mounts a role-guarded route whose handler records the
// user id it pulls out of Locals, the way every controller does.
func newGuardedApp(db *gorm.DB, roles []string, seen *uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Post("/labs/orders",
		AuthMiddleware(db),
		RoleMiddleware(roles...),
		func(c *fiber.Ctx) error {
			id, ok := c.Locals("user_id").(uuid.UUID)
			if !ok {
				return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
			}
			*seen = id
			return c.SendStatus(fiber.StatusCreated)
		})
	return app
}

func TestAuthMiddlewarePassesUserIDToHandlers(t *testing.T) {
	configs.JWTSecret = "test-secret"
	db := newAuthTestDB(t)
	doctor := seedUser(t, db, usermodel.UserRoleDoctor, true)

	var seen uuid.UUID
	app := newGuardedApp(db, []string{usermodel.UserRoleDoctor}, &seen)

	req := httptest.NewRequest("POST", "/labs/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, doctor, "test-secret"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, doctor.UserID, seen)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	configs.JWTSecret = "test-secret"
	db := newAuthTestDB(t)

	var seen uuid.UUID
	app := newGuardedApp(db, []string{usermodel.UserRoleDoctor}, &seen)

	req := httptest.NewRequest("POST", "/labs/orders", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareRejectsInactiveUser(t *testing.T) {
	configs.JWTSecret = "test-secret"
	db := newAuthTestDB(t)
	inactive := seedUser(t, db, usermodel.UserRoleDoctor, false)

	var seen uuid.UUID
	app := newGuardedApp(db, []string{usermodel.UserRoleDoctor}, &seen)

	req := httptest.NewRequest("POST", "/labs/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, inactive, "test-secret"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAuthMiddlewareRejectsWrongRole(t *testing.T) {
	configs.JWTSecret = "test-secret"
	db := newAuthTestDB(t)
	nurse := seedUser(t, db, usermodel.UserRoleNurse, true)

	var seen uuid.UUID
	app := newGuardedApp(db, []string{usermodel.UserRoleDoctor}, &seen)

	req := httptest.NewRequest("POST", "/labs/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, nurse, "test-secret"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
