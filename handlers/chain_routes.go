// handlers/chain_routes.go
package handlers

import (
	"zerogpool-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChainRoutes(app *fiber.App, chainService *services.ChainService) {
	// 🔓 Public read-only views over the session-vault contract
	app.Get("/api/blockchain/session/:walletAddress", chainService.GetSession)
	app.Get("/api/blockchain/login-count/:walletAddress", chainService.GetLoginCount)
	app.Get("/api/blockchain/stats", chainService.GetStats)
}
