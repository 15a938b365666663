// services/chain_service.go
package services

import (
	"errors"
	"log"
	"time"

	"zerogpool-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// snapshotMaxAge is how long the local mirror of contract totals is
// served before falling through to a live call.
const snapshotMaxAge = 5 * time.Minute

// ChainService exposes the read-through blockchain endpoints.
type ChainService struct {
	DB    *gorm.DB
	Chain ChainMirror
}

func NewChainService(db *gorm.DB, chain ChainMirror) *ChainService {
	return &ChainService{DB: db, Chain: chain}
}

// GetSession returns the wallet's latest on-chain session.
func (s *ChainService) GetSession(c *fiber.Ctx) error {
	wallet := c.Params("walletAddress")
	if !IsValidWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}
	if !s.Chain.IsReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false, "error": "Blockchain service not available",
		})
	}

	session, err := s.Chain.GetLatestSession(c.Context(), NormalizeWallet(wallet))
	if err != nil {
		log.Printf("⚠️  Failed to get latest session: %v", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "error": "No blockchain sessions found for this wallet",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": session})
}

// GetLoginCount returns the wallet's on-chain login count.
func (s *ChainService) GetLoginCount(c *fiber.Ctx) error {
	wallet := c.Params("walletAddress")
	if !IsValidWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}
	if !s.Chain.IsReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false, "error": "Blockchain service not available",
		})
	}

	normalized := NormalizeWallet(wallet)

	count, err := s.Chain.GetUserLoginCount(c.Context(), normalized)
	if err != nil {
		log.Printf("⚠️  Failed to get login count: %v", err)
		count = 0
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"walletAddress":     normalized,
			"onChainLoginCount": count,
		},
	})
}

// GetStats returns the contract's global counters, served from the local
// snapshot when fresh enough, falling through to a live call.
func (s *ChainService) GetStats(c *fiber.Ctx) error {
	if !s.Chain.IsReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false, "error": "Blockchain service not available",
		})
	}

	var snapshot models.ChainStatSnapshot
	err := s.DB.Where("contract_address = ?", s.Chain.ContractAddress()).
		First(&snapshot).Error
	haveSnapshot := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("DB Error reading chain snapshot: %v", err)
	}

	if haveSnapshot && time.Since(snapshot.SyncedAt) < snapshotMaxAge {
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"totalUsers":    snapshot.TotalUsers,
				"totalSessions": snapshot.TotalSessions,
			},
		})
	}

	totals, err := s.Chain.GetChainTotals(c.Context())
	if err != nil {
		log.Printf("⚠️  Failed to get blockchain stats: %v", err)
		if haveSnapshot {
			// Stale beats nothing for a vanity counter
			totals = &ChainTotals{
				TotalUsers:    snapshot.TotalUsers,
				TotalSessions: snapshot.TotalSessions,
			}
		} else {
			totals = &ChainTotals{}
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": totals})
}
