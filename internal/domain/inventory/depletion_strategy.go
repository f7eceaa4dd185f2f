package inventory

import (
	"sort"

	"github.com/medstock/backend/internal/domain/shared/strategy"
)

// Depletion strategy names
const (
	StrategyFEFO = "fefo"
	StrategyFIFO = "fifo"
)

// DepletionStrategy decides the order in which batches are drained
type DepletionStrategy interface {
	strategy.Strategy
	// Order returns the batches holding stock, in draining order.
	// The input slice is not modified.
	Order(batches []*Batch) []*Batch
}

// FEFOStrategy drains the batch expiring first.
// Batches without an expiry come after all dated ones; ties fall back to the date added.
// Expired batches are not skipped.
type FEFOStrategy struct {
	strategy.BaseStrategy
}

// NewFEFOStrategy creates a new FEFO strategy
func NewFEFOStrategy() *FEFOStrategy {
	return &FEFOStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			StrategyFEFO,
			strategy.StrategyTypeDepletion,
			"First Expired First Out - drains batches closest to expiry first, undated batches last",
		),
	}
}

// Order sorts candidate batches by expiry, then date added
func (s *FEFOStrategy) Order(batches []*Batch) []*Batch {
	sorted := availableBatches(batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate != nil:
			if c := a.ExpiryDate.Compare(*b.ExpiryDate); c != 0 {
				return c < 0
			}
		case a.ExpiryDate != nil:
			return true
		case b.ExpiryDate != nil:
			return false
		}
		return a.DateAdded.Before(b.DateAdded)
	})
	return sorted
}

// FIFOStrategy drains the batch that entered stock first
type FIFOStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOStrategy creates a new FIFO strategy
func NewFIFOStrategy() *FIFOStrategy {
	return &FIFOStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			StrategyFIFO,
			strategy.StrategyTypeDepletion,
			"First In First Out - drains batches in the order they were added",
		),
	}
}

// Order sorts candidate batches by date added only
func (s *FIFOStrategy) Order(batches []*Batch) []*Batch {
	sorted := availableBatches(batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateAdded.Before(sorted[j].DateAdded)
	})
	return sorted
}

// availableBatches returns the batches with quantity > 0
func availableBatches(batches []*Batch) []*Batch {
	available := make([]*Batch, 0, len(batches))
	for _, b := range batches {
		if b != nil && b.HasStock() {
			available = append(available, b)
		}
	}
	return available
}
