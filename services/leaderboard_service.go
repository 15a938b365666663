// services/leaderboard_service.go
package services

import (
	"log"

	"zerogpool-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LeaderboardLimit caps the vanity ranking size.
const LeaderboardLimit = 100

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// TopPlayers returns up to limit accounts ranked descending by balls
// pocketed. Ties break on store iteration order; rank starts at 1 with
// no gaps. Snapshot-consistent at the instant of the read, nothing more.
func (s *LeaderboardService) TopPlayers(limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > LeaderboardLimit {
		limit = LeaderboardLimit
	}

	var accounts []models.Account
	if err := s.DB.
		Order("stats_total_balls_pocketed DESC").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, len(accounts))
	for i, account := range accounts {
		entry := account.LeaderboardData()
		entry.Rank = i + 1
		entries[i] = entry
	}
	return entries, nil
}

// GetLeaderboard handles GET /api/leaderboard.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := s.TopPlayers(LeaderboardLimit)
	if err != nil {
		log.Printf("DB Error fetching leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}
