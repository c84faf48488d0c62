package controller

import (
	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Add(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	service service.IKnowledgeService
	jwt     fiber.Handler
}

func NewKnowledgeController(service service.IKnowledgeService, jwt fiber.Handler) IKnowledgeController {
	return &knowledgeController{service: service, jwt: jwt}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Use(c.jwt)
	h.Get("/", c.List)
	h.Post("/", c.Add)
	h.Post("/search", c.Search)
	h.Delete("/:id", c.Delete)
}

func (c *knowledgeController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.List(ctx.Context(), userId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Knowledge documents", res))
}

func (c *knowledgeController) Add(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.AddKnowledgeRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Add(ctx.Context(), userId, req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Knowledge document added", res))
}

func (c *knowledgeController) Search(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.SearchKnowledgeRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Search(ctx.Context(), userId, req.Query)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Search results", res))
}

func (c *knowledgeController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid document id")
	}

	if err := c.service.Delete(ctx.Context(), userId, id); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Knowledge document deleted", nil))
}
