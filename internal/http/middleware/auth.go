package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"digilocker/internal/service"
)

// UserIDLocalKey is the key under which the authenticated user id is stored
// in Fiber's context locals.
const UserIDLocalKey = "user_id"

// RequireAuth validates the Bearer access token and stores the user id in
// context locals. Requests without a valid token are rejected before any
// vault operation runs, so an anonymous caller can never reach a mutator.
func RequireAuth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "must be logged in")
		}

		userID, err := service.ParseToken(jwtSecret, strings.TrimPrefix(header, "Bearer "), "access")
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(UserIDLocalKey, userID)
		return c.Next()
	}
}

// UserIDFromCtx extracts the authenticated user id set by RequireAuth.
func UserIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(UserIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
