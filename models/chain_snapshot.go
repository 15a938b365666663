// models/chain_snapshot.go
package models

import "time"

// ChainStatSnapshot mirrors the session-vault contract's global counters
// into the local DB. Refreshed by the chain stats worker; the contract
// stays authoritative, this is a read cache.
// Table name: chain_stat_snapshots
type ChainStatSnapshot struct {
	ContractAddress string    `gorm:"primaryKey;type:varchar(64)" json:"contractAddress"`
	TotalUsers      uint64    `gorm:"not null" json:"totalUsers"`
	TotalSessions   uint64    `gorm:"not null" json:"totalSessions"`
	SyncedAt        time.Time `gorm:"not null" json:"syncedAt"`
}
