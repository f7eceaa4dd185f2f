package strategy

import (
	"sort"
	"strings"
	"sync"

	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared"
)

// StrategyRegistry manages depletion strategy registrations
type StrategyRegistry struct {
	mu          sync.RWMutex
	strategies  map[string]inventory.DepletionStrategy
	defaultName string
}

// NewStrategyRegistry creates a new, empty strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		strategies: make(map[string]inventory.DepletionStrategy),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register registers a depletion strategy under its name
func (r *StrategyRegistry) Register(s inventory.DepletionStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := normalizeName(s.Name())
	if _, exists := r.strategies[name]; exists {
		return shared.NewValidationError("depletion strategy '%s' already registered", name)
	}
	r.strategies[name] = s
	return nil
}

// Get returns a strategy by name, or the default if name is empty
func (r *StrategyRegistry) Get(name string) (inventory.DepletionStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = normalizeName(name)
	if name == "" {
		name = r.defaultName
		if name == "" {
			return nil, shared.NewValidationError("no default depletion strategy set")
		}
	}

	s, exists := r.strategies[name]
	if !exists {
		return nil, shared.NewValidationError("unknown depletion strategy '%s'", name)
	}
	return s, nil
}

// List returns all registered strategy names
func (r *StrategyRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefault sets the strategy used when a request names none
func (r *StrategyRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = normalizeName(name)
	if _, exists := r.strategies[name]; !exists {
		return shared.NewValidationError("unknown depletion strategy '%s'", name)
	}
	r.defaultName = name
	return nil
}

// Default returns the name of the default strategy
func (r *StrategyRegistry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}
