// middleware/sse_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource connections. Browsers cannot
// set headers on an SSE request, so the gateway token and user id arrive as
// query params instead.
//
// Usage:
//
//	app.Get("/engagement/notifications/stream", middleware.SSEAuthMiddleware(), engagementService.StreamNotificationsSSE)
func SSEAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("ENGAGEMENT_SERVICE_TOKEN")

	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		userID := strings.TrimSpace(c.Query("user_id"))

		if token == "" || userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token or user_id in query",
			})
		}
		if expectedToken == "" || token != expectedToken {
			log.Printf("[SSEAuth] ❌ Invalid token for user %s on %s", userID, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", strings.TrimSpace(c.Query("role")))

		return c.Next()
	}
}
