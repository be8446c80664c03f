package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/dto"
	"github.com/spec-kit/auth-gateway/internal/authfilter"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/service"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// AuthHandler exposes credential issuance endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{auth: authService, jwtCfg: jwtCfg}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required")
	}

	user, err := h.auth.Register(c.UserContext(), req.Username, req.Password, "")
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// Login handles POST /auth/login. On success the refresh credential is set
// as an HttpOnly cookie and the access token returned in the body.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required")
	}

	user, pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Set(h.jwtCfg.AccessHeader, h.jwtCfg.AccessPrefix+pair.AccessToken)
	c.Cookie(&fiber.Cookie{
		Name:     h.jwtCfg.RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.jwtCfg.RefreshTTL().Seconds()),
		HTTPOnly: true,
		Secure:   h.jwtCfg.CookieSecure,
	})

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"username": user.Username,
			"role":     user.Role,
			"auth":     dto.AuthResponse{AccessToken: pair.AccessToken, ExpiresAt: pair.ExpiresAt},
		},
	})
}

// Logout handles POST /auth/logout for an authenticated caller.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := authfilter.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewInvalidToken()
	}

	if err := h.auth.Logout(c.UserContext(), principal.Username); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.jwtCfg.RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.jwtCfg.CookieSecure,
	})

	return c.JSON(fiber.Map{"data": fiber.Map{"username": principal.Username}})
}
