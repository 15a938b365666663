// handlers/user_routes.go
package handlers

import (
	"zerogpool-backend/middleware"
	"zerogpool-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, leaderboardService *services.LeaderboardService) {
	// 🔓 Public routes — the Unity client loads and saves state before any login
	app.Get("/api/user", userService.GetUser)
	app.Post("/api/user", userService.SaveUser)
	app.Get("/api/leaderboard", leaderboardService.GetLeaderboard)
	app.Get("/api/player/data", userService.GetPlayerData)
	app.Post("/api/player/name", userService.UpdatePlayerName)

	// 🔐 Secured routes — wallet comes from the JWT, not the query
	secured := app.Group("/api/player", middleware.AuthRequired())
	secured.Get("/stats", userService.GetPlayerStats)
}
