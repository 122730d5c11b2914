// FILE: internal/pkg/serverutils/auth_middleware.go
package serverutils

import (
	"context"

	"ai-chat-be/internal/entity"

	"github.com/gofiber/fiber/v2"
)

// TokenAuthenticator resolves a bearer token to its user. A valid
// signature alone is not enough, the token must still have a live
// session row and an active user behind it.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, tokenStr string) (*entity.User, error)
}

func AuthMiddleware(auth TokenAuthenticator) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"code":    401,
				"message": "Missing token",
			})
		}
		tokenStr := authHeader[7:]

		user, err := auth.Authenticate(ctx.Context(), tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"code":    500,
				"message": "Internal server error",
			})
		}
		if user == nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"code":    401,
				"message": "Invalid or expired token",
			})
		}

		ctx.Locals("user_id", user.Id)
		ctx.Locals("user_email", user.Email)
		ctx.Locals("token", tokenStr)
		return ctx.Next()
	}
}
