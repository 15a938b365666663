// handlers/client_routes.go
package handlers

import (
	"zerogpool-backend/middleware"
	"zerogpool-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupClientRoutes(app *fiber.App, clientService *services.ClientService) {
	// 🔐 Admin only — pushes a new WebGL build to R2
	admin := app.Group("/api/admin", middleware.AdminAuthMiddleware())
	admin.Post("/client/deploy", clientService.DeployClientBuild)
}
