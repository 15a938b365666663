package workers

import (
	"context"
	"log"
	"time"

	"zerogpool-backend/models"
	"zerogpool-backend/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChainStatsWorker keeps the chain_stat_snapshots row in sync with the
// session-vault contract's global counters.
type ChainStatsWorker struct {
	DB    *gorm.DB
	Chain services.ChainMirror
}

func NewChainStatsWorker(db *gorm.DB, chain services.ChainMirror) *ChainStatsWorker {
	return &ChainStatsWorker{DB: db, Chain: chain}
}

// PollChainStats refreshes the snapshot every pollInterval until ctx is
// cancelled. Safe to start even when the chain mirror is disabled.
func (w *ChainStatsWorker) PollChainStats(ctx context.Context, pollInterval time.Duration) {
	if !w.Chain.IsReady() {
		log.Println("⚠️  Chain stats worker not started: blockchain mirror disabled")
		return
	}
	log.Println("Starting chain stats polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Prime the snapshot immediately so the stats endpoint has data
	// before the first tick.
	w.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Chain stats polling stopped.")
			return
		case <-ticker.C:
			w.refreshOnce(ctx)
		}
	}
}

func (w *ChainStatsWorker) refreshOnce(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	totals, err := w.Chain.GetChainTotals(callCtx)
	if err != nil {
		log.Printf("❌ Error polling chain totals: %v", err)
		return
	}

	snapshot := models.ChainStatSnapshot{
		ContractAddress: w.Chain.ContractAddress(),
		TotalUsers:      totals.TotalUsers,
		TotalSessions:   totals.TotalSessions,
		SyncedAt:        time.Now().UTC(),
	}

	if err := w.DB.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "contract_address"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_users",
				"total_sessions",
				"synced_at",
			}),
		},
	).Create(&snapshot).Error; err != nil {
		log.Printf("❌ Failed to upsert chain stat snapshot: %v", err)
		return
	}

	log.Printf("📥 Chain totals synced: %d users, %d sessions", totals.TotalUsers, totals.TotalSessions)
}
