// handlers/auth_routes.go
package handlers

import (
	"zerogpool-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	// 🔓 Public — signature verification happens inside the handler
	app.Post("/api/auth/login", authService.Login)
}
