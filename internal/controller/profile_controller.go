package controller

import (
	"io"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IProfileController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	UploadAvatar(ctx *fiber.Ctx) error
}

type profileController struct {
	service service.IProfileService
	jwt     fiber.Handler
}

func NewProfileController(service service.IProfileService, jwt fiber.Handler) IProfileController {
	return &profileController{service: service, jwt: jwt}
}

func (c *profileController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/profile/v1")
	h.Use(c.jwt)
	h.Get("/", c.GetProfile)
	h.Put("/", c.UpdateProfile)
	h.Post("/avatar", c.UploadAvatar)
}

func (c *profileController) GetProfile(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetProfile(ctx.Context(), userId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("User profile", res))
}

func (c *profileController) UpdateProfile(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateProfileRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SaveProfile(ctx.Context(), userId, &req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile updated", res))
}

func (c *profileController) UploadAvatar(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Avatar file is required")
	}
	if fileHeader.Size > service.MaxAvatarBytes {
		return toHTTPError(service.ErrAvatarTooLarge)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	res, err := c.service.UploadAvatar(ctx.Context(), userId, fileHeader.Filename, data)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Avatar uploaded", res))
}
