package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// SetupMiddlewares wires the app-wide middleware chain.
// Order matters: recovery first, then CORS, IP blocking, rate limit, audit.
func SetupMiddlewares(app *fiber.App, db *gorm.DB) {
	app.Use(RecoveryMiddleware())
	app.Use(requestid.New())
	app.Use(RequestLoggerMiddleware())
	app.Use(CorsMiddleware())
	app.Use(IPBlockMiddleware(db))
	app.Use(GlobalRateLimiter())
	app.Use(AuditMiddleware(db))
}
