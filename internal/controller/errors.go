package controller

import (
	"errors"

	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/service"
	"ai-chatbot-be/pkg/attachment"

	"github.com/gofiber/fiber/v2"
)

// toHTTPError maps service sentinels onto status codes; anything unknown is left
// for the error middleware to report as 500.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrExternalAccount),
		errors.Is(err, service.ErrEmailNotVerified):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrKnowledgeNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidAvatar),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, attachment.ErrEmptyURL),
		errors.Is(err, attachment.ErrUnrecognized):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAvatarTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, attachment.ErrDuplicate):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrOAuthNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return err
}

// parseBody decodes and validates the request body into req.
func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}
