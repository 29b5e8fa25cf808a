package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/giftcard-platform/internal/api/dto"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/service"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

// AuthHandler exposes the session endpoints of the auth service.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	token, err := h.sessions.Register(c.UserContext(), req.Username, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAuthResponse(token)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	token, err := h.sessions.Login(c.UserContext(), req.Username, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(token)})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if err := h.sessions.Logout(c.UserContext(), req.Username); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Verify handles GET /auth/verify behind the auth middleware.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	return c.JSON(fiber.Map{
		"message": "Token is valid",
		"user":    dto.NewIdentityResponse(identity),
	})
}

// bindJSON decodes the request body and checks required fields.
func bindJSON(c *fiber.Ctx, out interface{ Missing() []string }) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if fields := out.Missing(); len(fields) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": fields})
	}
	return nil
}
