package controller

import (
	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	State(ctx *fiber.Ctx) error
	SearchSessions(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	SelectSession(ctx *fiber.Ctx) error
	RenameSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SendTurn(ctx *fiber.Ctx) error
	AddAttachment(ctx *fiber.Ctx) error
	RemoveAttachment(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IConversationService
	jwt     fiber.Handler
	// ws serves /ws after the JWT check; nil disables the route.
	ws fiber.Handler
}

func NewChatController(service service.IConversationService, jwt fiber.Handler, ws fiber.Handler) IChatController {
	return &chatController{
		service: service,
		jwt:     jwt,
		ws:      ws,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(c.jwt)
	h.Get("/state", c.State)
	h.Get("/sessions", c.SearchSessions)
	h.Post("/sessions", c.CreateSession)
	h.Put("/sessions/:id/select", c.SelectSession)
	h.Put("/sessions/:id/title", c.RenameSession)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Post("/turns", c.SendTurn)
	h.Post("/attachments", c.AddAttachment)
	h.Delete("/attachments/:id", c.RemoveAttachment)
	if c.ws != nil {
		h.Get("/ws", c.ws)
	}
}

func (c *chatController) State(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat state", c.service.State(ctx.Context(), userId)))
}

func (c *chatController) SearchSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}
	res := c.service.SearchSessions(ctx.Context(), userId, ctx.Query("q"))
	return ctx.JSON(serverutils.SuccessResponse("Chat sessions", res))
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session created", c.service.CreateSession(ctx.Context(), userId)))
}

func (c *chatController) SelectSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session selected", c.service.SelectSession(ctx.Context(), userId, sessionId)))
}

func (c *chatController) RenameSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndSession(ctx)
	if err != nil {
		return err
	}

	var req dto.RenameSessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res := c.service.RenameSession(ctx.Context(), userId, sessionId, req.Title)
	return ctx.JSON(serverutils.SuccessResponse("Chat session renamed", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session deleted", c.service.DeleteSession(ctx.Context(), userId, sessionId)))
}

// SendTurn answers 200 whatever the outcome; the outcome field says how far it got.
func (c *chatController) SendTurn(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.SendTurnRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res := c.service.SendTurn(ctx.Context(), userId, &req)
	return ctx.JSON(serverutils.SuccessResponse("Turn processed", res))
}

func (c *chatController) AddAttachment(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.AddAttachmentRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.AddAttachment(ctx.Context(), userId, req.URL)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Attachment added", res))
}

func (c *chatController) RemoveAttachment(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	if !c.service.RemoveAttachment(ctx.Context(), userId, ctx.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "Attachment not found")
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Attachment removed", nil))
}

func ownerAndSession(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	return userId, sessionId, nil
}
