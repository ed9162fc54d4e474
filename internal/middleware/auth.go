package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mediagrab/api/internal/service"
	"github.com/mediagrab/api/pkg/response"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session"

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate validates the session token from the session cookie,
// falling back to an Authorization bearer header for non-browser
// clients.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			token = bearerToken(c.Get("Authorization"))
		}
		if token == "" {
			return response.Unauthorized(c, "Missing session token")
		}

		if err := m.auth.Validate(token); err != nil {
			return response.Unauthorized(c, "Invalid or expired session")
		}

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
