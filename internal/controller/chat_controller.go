// FILE: internal/controller/chat_controller.go
package controller

import (
	"errors"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	ListConversations(ctx *fiber.Ctx) error
	GetConversation(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
	ExportConversation(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type chatController struct {
	service        service.IChatService
	authMiddleware fiber.Handler
}

func NewChatController(service service.IChatService, authMiddleware fiber.Handler) IChatController {
	return &chatController{
		service:        service,
		authMiddleware: authMiddleware,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat", c.authMiddleware)
	h.Post("/send", c.Send)
	h.Get("/conversations", c.ListConversations)
	h.Get("/conversations/:id", c.GetConversation)
	h.Delete("/conversations/:id", c.DeleteConversation)
	h.Get("/conversations/:id/export", c.ExportConversation)
	h.Get("/search", c.Search)
	h.Get("/stats", c.Stats)
}

func currentUserId(ctx *fiber.Ctx) uuid.UUID {
	userId, _ := ctx.Locals("user_id").(uuid.UUID)
	return userId
}

func conversationIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(ctx.Params("id"))
}

func notFoundResponse(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"code":    404,
		"message": "Conversation not found",
	})
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    400,
			"message": "Invalid request body",
		})
	}

	res, err := c.service.SendChat(ctx.Context(), currentUserId(ctx), &req)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return notFoundResponse(ctx)
		}
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "Message sent",
		"data":    res,
	})
}

func (c *chatController) ListConversations(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)

	res, err := c.service.ListConversations(ctx.Context(), currentUserId(ctx), page, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "OK",
		"data":    res,
	})
}

func (c *chatController) GetConversation(ctx *fiber.Ctx) error {
	conversationId, err := conversationIdParam(ctx)
	if err != nil {
		return notFoundResponse(ctx)
	}
	limit := ctx.QueryInt("limit", 0)

	res, err := c.service.GetConversation(ctx.Context(), currentUserId(ctx), conversationId, limit)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return notFoundResponse(ctx)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "OK",
		"data":    res,
	})
}

func (c *chatController) DeleteConversation(ctx *fiber.Ctx) error {
	conversationId, err := conversationIdParam(ctx)
	if err != nil {
		return notFoundResponse(ctx)
	}

	if err := c.service.DeleteConversation(ctx.Context(), currentUserId(ctx), conversationId); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return notFoundResponse(ctx)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "Conversation deleted",
	})
}

func (c *chatController) ExportConversation(ctx *fiber.Ctx) error {
	conversationId, err := conversationIdParam(ctx)
	if err != nil {
		return notFoundResponse(ctx)
	}

	res, err := c.service.ExportConversation(ctx.Context(), currentUserId(ctx), conversationId)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return notFoundResponse(ctx)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "OK",
		"data":    res,
	})
}

func (c *chatController) Search(ctx *fiber.Ctx) error {
	query := ctx.Query("q")
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)

	res, err := c.service.Search(ctx.Context(), currentUserId(ctx), query, page, limit)
	if err != nil {
		if isValidationError(err) {
			return validationResponse(ctx, err)
		}
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "OK",
		"data":    res,
	})
}

func (c *chatController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.GetUserStats(ctx.Context(), currentUserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": "OK",
		"data":    res,
	})
}
