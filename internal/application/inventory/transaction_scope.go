package inventory

import (
	"context"

	"github.com/medstock/backend/internal/domain/inventory"
)

// TransactionScope runs one read-modify-write cycle on the item collection.
// Cycles sharing an itemID never interleave. If fn returns an error nothing fn
// saved through repo is kept, as long as the backing store is transactional;
// otherwise fn must validate fully before calling Save.
type TransactionScope interface {
	Execute(ctx context.Context, itemID string, fn func(repo inventory.ItemRepository) error) error
}

// NoOpTransactionScope hands the repository straight to fn with no locking.
// This is useful for testing or single-caller tools.
type NoOpTransactionScope struct {
	repo inventory.ItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over repo
func NewNoOpTransactionScope(repo inventory.ItemRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{repo: repo}
}

// Execute runs fn with the wrapped repository
func (s *NoOpTransactionScope) Execute(ctx context.Context, _ string, fn func(repo inventory.ItemRepository) error) error {
	return fn(s.repo)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
