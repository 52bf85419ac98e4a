package middleware

import (
	"log"
	"strings"

	"gymflow/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "gymflow_session"

// SessionRequired is a Fiber middleware that resolves the acting user
// from the session cookie (or a Bearer header for non-browser clients).
// The resolved user ID lands in c.Locals("user_id").
func SessionRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}

		session, err := authService.ValidateSession(c.Context(), token)
		if err != nil {
			log.Printf("Session validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired session",
			})
		}

		c.Locals("user_id", session.UserID)

		return c.Next()
	}
}

// SessionToken extracts the session token from the request: the session
// cookie first, then an Authorization: Bearer header.
func SessionToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(SessionCookieName); cookie != "" {
		return cookie
	}

	authHeader := c.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
