package services

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRankedAccounts(t *testing.T, svc *LeaderboardService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		wallet := fmt.Sprintf("0x%040x", i+1)
		account, _, err := EnsureAccount(svc.DB, wallet)
		require.NoError(t, err)
		account.PlayerData.PlayerNames0 = fmt.Sprintf("player-%d", i+1)
		account.Stats.TotalBallsPocketed = int64((i + 1) * 10)
		account.Stats.TotalGamesWonVsCPU = int64(i)
		account.Stats.TotalGamesWonVsHuman = 1
		require.NoError(t, svc.DB.Save(account).Error)
	}
}

func TestTopPlayersRanking(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedRankedAccounts(t, svc, 5)

	entries, err := svc.TopPlayers(LeaderboardLimit)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// Descending by balls pocketed, rank 1..N with no gaps
	assert.Equal(t, int64(50), entries[0].TotalBallsPocketed)
	assert.Equal(t, "player-5", entries[0].PlayerName)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, entries[i-1].TotalBallsPocketed, entry.TotalBallsPocketed)
		}
	}

	// Wins aggregate CPU and human games
	assert.Equal(t, int64(5), entries[0].TotalGamesWon)
}

func TestTopPlayersLimit(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedRankedAccounts(t, svc, 7)

	entries, err := svc.TopPlayers(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Out-of-range limits clamp to the cap instead of erroring
	entries, err = svc.TopPlayers(-1)
	require.NoError(t, err)
	assert.Len(t, entries, 7)
}

func TestTopPlayersAnonymousFallback(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	_, _, err := EnsureAccount(svc.DB, testWalletA)
	require.NoError(t, err)

	entries, err := svc.TopPlayers(LeaderboardLimit)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Anonymous", entries[0].PlayerName)
}

func TestGetLeaderboardEndpoint(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedRankedAccounts(t, svc, 2)

	app := fiber.New()
	app.Get("/api/leaderboard", svc.GetLeaderboard)

	status, body := getJSON(t, app, "/api/leaderboard")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["data"].([]any), 2)
}
