package persistence

import (
	"context"
	"fmt"
	"sync"

	appinv "github.com/medstock/backend/internal/application/inventory"
	"github.com/medstock/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// LockingTransactionScope serializes cycles per item id in this process.
// It is used for the memory, redis and s3 stores, which have no transactions.
type LockingTransactionScope struct {
	repo  inventory.ItemRepository
	locks *keyedMutex
}

// NewLockingTransactionScope creates a scope over repo
func NewLockingTransactionScope(repo inventory.ItemRepository) *LockingTransactionScope {
	return &LockingTransactionScope{
		repo:  repo,
		locks: newKeyedMutex(),
	}
}

// Execute runs fn while holding the lock for itemID
func (s *LockingTransactionScope) Execute(ctx context.Context, itemID string, fn func(repo inventory.ItemRepository) error) error {
	unlock := s.locks.lock(itemID)
	defer unlock()
	return fn(s.repo)
}

// GormTransactionScope runs each cycle in a database transaction.
// On postgres each cycle first takes a transaction-scoped advisory lock on
// the collection key, so concurrent cycles from any process wait for the
// running one to commit even while the collection row does not exist yet.
// The collection row is also read with FOR UPDATE.
type GormTransactionScope struct {
	db        *gorm.DB
	keyPrefix string
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, keyPrefix string) *GormTransactionScope {
	return &GormTransactionScope{db: db, keyPrefix: keyPrefix}
}

// Execute runs fn within a transaction, rolled back when fn fails
func (s *GormTransactionScope) Execute(ctx context.Context, _ string, fn func(repo inventory.ItemRepository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockCollection(tx); err != nil {
			return err
		}
		repo := NewItemCollectionRepository(NewGormStore(tx).withTx(tx), s.keyPrefix)
		return fn(repo)
	})
}

// lockCollection blocks until tx holds the advisory lock for the collection key.
// The lock is released by postgres when tx commits or rolls back.
func (s *GormTransactionScope) lockCollection(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	key := s.keyPrefix + itemsKey
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var (
	_ appinv.TransactionScope = (*LockingTransactionScope)(nil)
	_ appinv.TransactionScope = (*GormTransactionScope)(nil)
)
