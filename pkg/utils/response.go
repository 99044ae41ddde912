package utils

import "github.com/gofiber/fiber/v2"

// Machine-readable error codes carried alongside the human message.
const (
	CodeInvalidInput    = "invalid_input"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeEmailTaken      = "email_taken"
	CodeUnreadableFile  = "unreadable_file"
	CodeAnalysisFailed  = "analysis_failed"
	CodeInternal        = "internal_error"
)

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"error":   message,
	})
}
