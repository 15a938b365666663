// middleware/admin.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAuthMiddleware validates the static operator token used by deploy
// tooling (client build uploads). Not related to player JWTs.
func AdminAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("ADMIN_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ ADMIN_TOKEN is not set — admin endpoints cannot authenticate")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [ADMIN_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "admin token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			log.Printf("❌ [ADMIN_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid admin token",
			})
		}

		return c.Next()
	}
}
