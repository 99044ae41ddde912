package middleware

import (
	"time"

	"github.com/excelytics/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

// RequestLogger emits one event per completed request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
		}
		if err != nil {
			logger.Error("http_request_failed", err, fields)
			return err
		}
		logger.Info("http_request", fields)
		return nil
	}
}
