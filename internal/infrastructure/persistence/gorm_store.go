package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements KeyValueStore on the kv_entries table
type GormStore struct {
	db      *gorm.DB
	lockRow bool
}

// NewGormStore creates a store over db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// withTx returns a store bound to tx. On postgres, reads take a row lock
// (SELECT ... FOR UPDATE) that is held until tx ends.
func (s *GormStore) withTx(tx *gorm.DB) *GormStore {
	return &GormStore{
		db:      tx,
		lockRow: tx.Dialector.Name() == "postgres",
	}
}

// Get returns the value stored under key
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	q := s.db.WithContext(ctx)
	if s.lockRow {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entry models.KVEntry
	err := q.Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set upserts key
func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting an absent key is not an error
func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the connection belongs to Database
func (s *GormStore) Close() error {
	return nil
}

var _ shared.KeyValueStore = (*GormStore)(nil)
