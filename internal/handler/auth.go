package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mediagrab/api/internal/middleware"
	"github.com/mediagrab/api/internal/model"
	"github.com/mediagrab/api/internal/service"
	"github.com/mediagrab/api/pkg/response"
)

type AuthHandler struct {
	auth      *service.AuthService
	validator *validator.Validate
}

func NewAuthHandler(auth *service.AuthService, v *validator.Validate) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		validator: v,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			return response.Unauthorized(c, "Incorrect password")
		}
		return response.ServiceError(c, err.Error())
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(h.auth.TokenLifetime()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return response.OK(c, fiber.Map{"authenticated": true})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return response.NoContent(c)
}
