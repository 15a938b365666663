// services/auth_service.go
package services

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type AuthService struct {
	DB        *gorm.DB
	Chain     ChainMirror
	Referrals *ReferralService

	secret         []byte
	expiresIn      time.Duration
	expiresInLabel string
}

func NewAuthService(db *gorm.DB, chain ChainMirror, referrals *ReferralService) *AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ JWT_SECRET environment variable not set")
	}

	expiresLabel := os.Getenv("JWT_EXPIRES_IN")
	if expiresLabel == "" {
		expiresLabel = "720h" // 30 days
	}
	expiresIn, err := time.ParseDuration(expiresLabel)
	if err != nil {
		log.Fatalf("❌ Invalid JWT_EXPIRES_IN %q: %v", expiresLabel, err)
	}

	return &AuthService{
		DB:             db,
		Chain:          chain,
		Referrals:      referrals,
		secret:         []byte(secret),
		expiresIn:      expiresIn,
		expiresInLabel: expiresLabel,
	}
}

// GenerateToken issues a signed session token binding the wallet address
// and account ID.
func (s *AuthService) GenerateToken(walletAddress, accountID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"walletAddress": walletAddress,
		"accountId":     accountID,
		"iat":           now.Unix(),
		"exp":           now.Add(s.expiresIn).Unix(),
	})
	return token.SignedString(s.secret)
}

// Login finds or creates the account for the wallet, applies an optional
// ?ref= implicit claim, issues a JWT, and mirrors the session on-chain
// without blocking the response.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}
	if !IsValidWalletAddress(req.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}

	normalized := NormalizeWallet(req.WalletAddress)

	account, created, err := EnsureAccount(s.DB, normalized)
	if err != nil {
		log.Printf("DB Error during login for %s: %v", normalized, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}
	if created {
		log.Printf("👤 New account created during login: %s", normalized)
	}

	// Implicit referral claim from the landing link; never blocks login
	if refCode := c.Query("ref"); refCode != "" {
		if _, err := s.Referrals.Claim(normalized, NormalizeCode(refCode)); err != nil {
			log.Printf("⚠️  Implicit referral claim failed for %s (code %s): %v",
				normalized, refCode, err)
		}
	}

	token, err := s.GenerateToken(normalized, account.ID)
	if err != nil {
		log.Printf("Token generation failed for %s: %v", normalized, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	log.Printf("🔑 User logged in: %s", normalized)

	data := fiber.Map{
		"token":         token,
		"walletAddress": normalized,
		"expiresIn":     s.expiresInLabel,
	}

	if s.Chain.IsReady() {
		// Fire-and-forget session mirror; its errors never surface here
		stats := account.Stats
		go func() {
			ctx, cancel := waitCtx(2 * time.Minute)
			defer cancel()
			receipt, err := s.Chain.RecordSession(ctx, normalized, stats)
			if err != nil {
				log.Printf("⚠️  Failed to record blockchain session for %s: %v", normalized, err)
				return
			}
			log.Printf("🔗 Blockchain session recorded for %s: %s", normalized, receipt.TransactionHash)
		}()

		// Best-effort read of the on-chain login count for the response
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if count, err := s.Chain.GetUserLoginCount(ctx, normalized); err == nil {
			data["blockchain"] = fiber.Map{
				"onChainLoginCount": count,
				"blockchainEnabled": true,
			}
		} else {
			log.Printf("⚠️  Failed to get blockchain login count: %v", err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data":    data,
	})
}
