package workers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"zerogpool-backend/models"
	"zerogpool-backend/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ChainStatSnapshot{}))
	return db
}

type stubMirror struct {
	ready  bool
	totals services.ChainTotals
	err    error
}

func (s *stubMirror) IsReady() bool           { return s.ready }
func (s *stubMirror) ContractAddress() string { return "0x00000000000000000000000000000000DeaDBeef" }

func (s *stubMirror) RecordSession(context.Context, string, models.GameStats) (*services.SessionReceipt, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubMirror) GetUserLoginCount(context.Context, string) (uint64, error) {
	return 0, fmt.Errorf("not implemented")
}

func (s *stubMirror) GetLatestSession(context.Context, string) (*services.SessionRecord, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubMirror) GetChainTotals(context.Context) (*services.ChainTotals, error) {
	if s.err != nil {
		return nil, s.err
	}
	totals := s.totals
	return &totals, nil
}

func TestRefreshUpsertsSnapshot(t *testing.T) {
	db := newWorkerDB(t)
	mirror := &stubMirror{ready: true, totals: services.ChainTotals{TotalUsers: 3, TotalSessions: 12}}
	w := NewChainStatsWorker(db, mirror)

	w.refreshOnce(context.Background())

	var snapshot models.ChainStatSnapshot
	require.NoError(t, db.First(&snapshot).Error)
	assert.Equal(t, mirror.ContractAddress(), snapshot.ContractAddress)
	assert.Equal(t, uint64(3), snapshot.TotalUsers)
	assert.Equal(t, uint64(12), snapshot.TotalSessions)
	assert.False(t, snapshot.SyncedAt.IsZero())

	// Second refresh updates the same row
	mirror.totals = services.ChainTotals{TotalUsers: 4, TotalSessions: 20}
	w.refreshOnce(context.Background())

	var count int64
	require.NoError(t, db.Model(&models.ChainStatSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.First(&snapshot).Error)
	assert.Equal(t, uint64(4), snapshot.TotalUsers)
	assert.Equal(t, uint64(20), snapshot.TotalSessions)
}

func TestRefreshKeepsSnapshotOnError(t *testing.T) {
	db := newWorkerDB(t)
	mirror := &stubMirror{ready: true, totals: services.ChainTotals{TotalUsers: 3, TotalSessions: 12}}
	w := NewChainStatsWorker(db, mirror)

	w.refreshOnce(context.Background())

	mirror.err = fmt.Errorf("rpc timeout")
	w.refreshOnce(context.Background())

	var snapshot models.ChainStatSnapshot
	require.NoError(t, db.First(&snapshot).Error)
	assert.Equal(t, uint64(3), snapshot.TotalUsers)
}

func TestPollDoesNotStartWhenDisabled(t *testing.T) {
	db := newWorkerDB(t)
	w := NewChainStatsWorker(db, &stubMirror{ready: false})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Returns immediately instead of ticking
	w.PollChainStats(ctx, 0)

	var count int64
	require.NoError(t, db.Model(&models.ChainStatSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
