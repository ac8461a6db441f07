// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the identity headers set by the Gateway
// and attaches them to the request context. Routes behind it require a
// user id.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		role := strings.TrimSpace(c.Get("X-User-Role"))

		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", role)

		return c.Next()
	}
}

// RoleIs reports whether the request's role matches any of the given ones.
func RoleIs(c *fiber.Ctx, roles ...string) bool {
	role, _ := c.Locals("user_role").(string)
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
