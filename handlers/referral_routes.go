// handlers/referral_routes.go
package handlers

import (
	"zerogpool-backend/middleware"
	"zerogpool-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	// 🔓 Public — generate proves wallet ownership with a signature instead of a JWT
	app.Post("/api/referral/generate", referralService.GenerateReferralCode)
	app.Post("/api/referral/claim", referralService.ClaimReferral)

	// 🔐 Secured
	secured := app.Group("/api/referral", middleware.AuthRequired())
	secured.Get("/stats", referralService.GetReferralStats)
}
