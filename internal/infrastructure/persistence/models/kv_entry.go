// Package models contains the GORM persistence models.
package models

import "time"

// KVEntry is one key of the ledger key-value space.
// The item collection is stored as a single JSON document under one key.
type KVEntry struct {
	Key       string    `gorm:"column:key;type:varchar(191);primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (KVEntry) TableName() string {
	return "kv_entries"
}
