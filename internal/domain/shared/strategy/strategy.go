// Package strategy holds the shared contract for pluggable stock policies.
package strategy

// StrategyType groups strategies by the decision they make
type StrategyType string

// StrategyTypeDepletion orders batches for draining stock
const StrategyTypeDepletion StrategyType = "depletion"

// Strategy is implemented by every named policy the registry can hand out
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy carries the identity fields so concrete strategies only implement behaviour
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

// NewBaseStrategy creates a BaseStrategy
func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.strategyType }
func (s BaseStrategy) Description() string { return s.description }
