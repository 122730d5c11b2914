// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"

	"ai-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// NewErrorHandler logs the real error and returns a generic envelope.
// Internal detail never reaches the client.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		log.Error("http", "request failed", map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"code":   code,
			"error":  err.Error(),
		})

		return ctx.Status(code).JSON(fiber.Map{
			"success": false,
			"code":    code,
			"message": message,
		})
	}
}
