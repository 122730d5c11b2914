// FILE: internal/controller/auth_controller.go
package controller

import (
	"errors"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// validationResponse echoes a service validation message as a 400.
// Only *service.ValidationError reaches here; anything else goes to the
// error handler so internal detail never leaks into a response.
func validationResponse(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"code":    400,
		"message": err.Error(),
	})
}

func isValidationError(err error) bool {
	var vErr *service.ValidationError
	return errors.As(err, &vErr)
}

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Verify(ctx *fiber.Ctx) error
	ForgotPassword(ctx *fiber.Ctx) error
	ResetPassword(ctx *fiber.Ctx) error
	Deactivate(ctx *fiber.Ctx) error
}

type authController struct {
	service         service.IAuthService
	authMiddleware  fiber.Handler
	loginLimiter    fiber.Handler
	registerLimiter fiber.Handler
}

func NewAuthController(
	service service.IAuthService,
	authMiddleware fiber.Handler,
	loginLimiter fiber.Handler,
	registerLimiter fiber.Handler,
) IAuthController {
	return &authController{
		service:         service,
		authMiddleware:  authMiddleware,
		loginLimiter:    loginLimiter,
		registerLimiter: registerLimiter,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.registerLimiter, c.Register)
	h.Post("/login", c.loginLimiter, c.Login)
	h.Post("/request-password-reset", c.loginLimiter, c.ForgotPassword)
	h.Post("/reset-password", c.loginLimiter, c.ResetPassword)
	h.Post("/logout", c.authMiddleware, c.Logout)
	h.Get("/verify", c.authMiddleware, c.Verify)
	h.Delete("/account", c.authMiddleware, c.Deactivate)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    400,
			"message": "Invalid request body",
		})
	}

	res, err := c.service.Register(ctx.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"code":    201,
		"message": "User registered successfully",
		"data":    res,
	})
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    400,
			"message": "Invalid request body",
		})
	}

	res, err := c.service.Login(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"code":    401,
				"message": err.Error(),
			})
		}
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "Login successful",
		"data":    res,
	})
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	tokenStr, _ := ctx.Locals("token").(string)

	if err := c.service.Logout(ctx.Context(), tokenStr); err != nil {
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "Logged out successfully",
	})
}

func (c *authController) Verify(ctx *fiber.Ctx) error {
	userId, _ := ctx.Locals("user_id").(uuid.UUID)
	email, _ := ctx.Locals("user_email").(string)

	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "OK",
		"data": fiber.Map{
			"id":    userId,
			"email": email,
		},
	})
}

func (c *authController) ForgotPassword(ctx *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    400,
			"message": "Invalid request body",
		})
	}

	res, err := c.service.ForgotPassword(ctx.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}

	// Same response whether or not the account exists.
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "If that email is registered, password reset instructions have been sent",
		"data":    res,
	})
}

func (c *authController) ResetPassword(ctx *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    400,
			"message": "Invalid request body",
		})
	}

	if err := c.service.ResetPassword(ctx.Context(), &req); err != nil {
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "Password reset successfully",
	})
}

func (c *authController) Deactivate(ctx *fiber.Ctx) error {
	userId, _ := ctx.Locals("user_id").(uuid.UUID)

	if err := c.service.Deactivate(ctx.Context(), userId); err != nil {
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "Account deactivated",
	})
}
