package middlewares

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RequestLoggerMiddleware tags each request with an id and logs method,
// path, status and latency after the handler returns.
func RequestLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		rid, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		log.Printf("[HTTP] %s %s %s -> %d (%s)",
			rid, c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))
		return err
	}
}
