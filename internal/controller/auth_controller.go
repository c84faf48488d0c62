package controller

import (
	"strings"
	"time"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const oauthStateCookie = "oauth_state"

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
	GoogleLogin(ctx *fiber.Ctx) error
	GoogleCallback(ctx *fiber.Ctx) error
}

type authController struct {
	service      service.IAuthService
	oauthService service.IOAuthService
	jwt          fiber.Handler
}

func NewAuthController(service service.IAuthService, oauthService service.IOAuthService, jwt fiber.Handler) IAuthController {
	return &authController{
		service:      service,
		oauthService: oauthService,
		jwt:          jwt,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/v1")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
	h.Post("/refresh", c.Refresh)
	h.Post("/logout", c.jwt, c.Logout)
	h.Get("/session", c.Session)
	h.Get("/google", c.GoogleLogin)
	h.Get("/google/callback", c.GoogleCallback)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Register(ctx.Context(), &req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(&serverutils.Response[*dto.RegisterResponse]{
		Success: true,
		Code:    fiber.StatusCreated,
		Message: "User registered successfully",
		Data:    res,
	})
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	session, err := c.service.Login(ctx.Context(), &req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", mapper.SessionToResponse(session)))
}

func (c *authController) Refresh(ctx *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	session, err := c.service.Refresh(ctx.Context(), req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Token refreshed", mapper.SessionToResponse(session)))
}

// Logout revokes the given refresh token, or all of the user's tokens when the
// body carries none.
func (c *authController) Logout(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.LogoutRequest
	_ = ctx.BodyParser(&req)

	if err := c.service.Logout(ctx.Context(), userId, strings.TrimSpace(req.RefreshToken)); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out successfully", nil))
}

func (c *authController) Session(ctx *fiber.Ctx) error {
	token := strings.TrimSpace(strings.TrimPrefix(ctx.Get("Authorization"), "Bearer "))
	session := c.service.CurrentSession(ctx.Context(), token)
	if session == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "No active session")
	}
	return ctx.JSON(serverutils.SuccessResponse("Current session", mapper.SessionToResponse(session)))
}

func (c *authController) GoogleLogin(ctx *fiber.Ctx) error {
	url, state, err := c.oauthService.GoogleLoginURL()
	if err != nil {
		return toHTTPError(err)
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return ctx.JSON(serverutils.SuccessResponse("Google login URL", dto.GoogleLoginResponse{URL: url, State: state}))
}

func (c *authController) GoogleCallback(ctx *fiber.Ctx) error {
	state := ctx.Query("state")
	if state == "" || state != ctx.Cookies(oauthStateCookie) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid OAuth state")
	}
	code := ctx.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing authorization code")
	}
	ctx.ClearCookie(oauthStateCookie)

	session, err := c.oauthService.GoogleCallback(ctx.Context(), code)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", mapper.SessionToResponse(session)))
}
