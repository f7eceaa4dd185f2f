package strategy

import "github.com/medstock/backend/internal/domain/inventory"

// NewRegistryWithDefaults creates a registry holding FEFO and FIFO.
// defaultName selects the strategy used when a request names none; empty means FEFO.
func NewRegistryWithDefaults(defaultName string) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	if err := r.Register(inventory.NewFEFOStrategy()); err != nil {
		return nil, err
	}
	if err := r.Register(inventory.NewFIFOStrategy()); err != nil {
		return nil, err
	}

	if defaultName == "" {
		defaultName = inventory.StrategyFEFO
	}
	if err := r.SetDefault(defaultName); err != nil {
		return nil, err
	}
	return r, nil
}
