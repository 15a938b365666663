package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"zerogpool-backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory sqlite store migrated with the
// full schema. cache=shared keeps the DB alive across GORM's pool.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.ChainStatSnapshot{}))
	return db
}

// fakeChainMirror is an in-memory ChainMirror double. RecordSession runs
// on a background goroutine during login, hence the mutex.
type fakeChainMirror struct {
	mu          sync.Mutex
	ready       bool
	contract    string
	loginCounts map[string]uint64
	sessions    map[string]*SessionRecord
	totals      ChainTotals
	totalsErr   error
	recorded    []string
}

func newFakeChainMirror(ready bool) *fakeChainMirror {
	return &fakeChainMirror{
		ready:       ready,
		contract:    "0x00000000000000000000000000000000DeaDBeef",
		loginCounts: map[string]uint64{},
		sessions:    map[string]*SessionRecord{},
	}
}

func (f *fakeChainMirror) IsReady() bool           { return f.ready }
func (f *fakeChainMirror) ContractAddress() string { return f.contract }

func (f *fakeChainMirror) RecordSession(ctx context.Context, walletAddress string, stats models.GameStats) (*SessionReceipt, error) {
	if !f.ready {
		return nil, fmt.Errorf("chain mirror not initialized")
	}
	f.mu.Lock()
	f.recorded = append(f.recorded, walletAddress)
	f.mu.Unlock()
	return &SessionReceipt{TransactionHash: "0xabc", BlockNumber: 1}, nil
}

func (f *fakeChainMirror) GetUserLoginCount(ctx context.Context, walletAddress string) (uint64, error) {
	if !f.ready {
		return 0, fmt.Errorf("chain mirror not initialized")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCounts[walletAddress], nil
}

func (f *fakeChainMirror) GetLatestSession(ctx context.Context, walletAddress string) (*SessionRecord, error) {
	if !f.ready {
		return nil, fmt.Errorf("chain mirror not initialized")
	}
	session, ok := f.sessions[walletAddress]
	if !ok {
		return nil, fmt.Errorf("no sessions recorded")
	}
	return session, nil
}

func (f *fakeChainMirror) GetChainTotals(ctx context.Context) (*ChainTotals, error) {
	if f.totalsErr != nil {
		return nil, f.totalsErr
	}
	if !f.ready {
		return nil, fmt.Errorf("chain mirror not initialized")
	}
	totals := f.totals
	return &totals, nil
}
