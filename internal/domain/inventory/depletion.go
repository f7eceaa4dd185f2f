package inventory

import (
	"time"

	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
)

// NoteFormatter renders the audit line appended to a drained batch
type NoteFormatter func(b *Batch, quantity int64, unit string) string

// Allocation is the quantity taken from one batch
type Allocation struct {
	BatchID          string            `json:"batch_id"`
	Quantity         int64             `json:"quantity"`
	ExpiryDate       *valueobject.Date `json:"expiry_date,omitempty"`
	RemainingInBatch int64             `json:"remaining_in_batch"`
}

// DepletionPlan is the ordered set of allocations satisfying a request
type DepletionPlan struct {
	Strategy    string       `json:"strategy"`
	Requested   int64        `json:"requested"`
	Allocations []Allocation `json:"allocations"`
}

// Total returns the quantity covered by the plan
func (p *DepletionPlan) Total() int64 {
	var total int64
	for _, a := range p.Allocations {
		total += a.Quantity
	}
	return total
}

// PlanDepletion computes which batches to drain and by how much, without mutating them.
// It fails with INSUFFICIENT_STOCK when the batches holding stock cannot cover the request.
// A nil strategy means FEFO.
func PlanDepletion(batches []*Batch, requested int64, s DepletionStrategy) (*DepletionPlan, error) {
	if requested <= 0 {
		return nil, shared.NewInvalidQuantityError("requested quantity must be greater than zero, got %d", requested)
	}
	if s == nil {
		s = NewFEFOStrategy()
	}

	ordered := s.Order(batches)
	var available int64
	for _, b := range ordered {
		available += b.Quantity
	}
	if available < requested {
		return nil, shared.NewInsufficientStockError(requested, available, "")
	}

	plan := &DepletionPlan{
		Strategy:    s.Name(),
		Requested:   requested,
		Allocations: make([]Allocation, 0, len(ordered)),
	}
	remaining := requested
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		take := min(b.Quantity, remaining)
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:          b.ID,
			Quantity:         take,
			ExpiryDate:       b.ExpiryDate,
			RemainingInBatch: b.Quantity - take,
		})
		remaining -= take
	}
	return plan, nil
}

// Depletion describes one draining of an item's stock
type Depletion struct {
	Quantity int64
	Strategy DepletionStrategy
	// Format renders the note line for each drained batch. Nil means FormatNote of Movement.
	Format NoteFormatter
	// Movement is the structured record template. BatchID, Quantity, Unit and ID are filled per batch.
	// A zero Kind records nothing.
	Movement Movement
}

// Deplete plans and applies a depletion. Either every allocation is applied or, on error, none is.
func (i *Item) Deplete(d Depletion, at time.Time) (*DepletionPlan, error) {
	plan, err := PlanDepletion(i.Batches, d.Quantity, d.Strategy)
	if err != nil {
		if shared.IsCode(err, shared.CodeInsufficientStock) {
			return nil, shared.NewInsufficientStockError(d.Quantity, i.TotalQuantity(), i.Unit)
		}
		return nil, err
	}

	format := d.Format
	if format == nil && d.Movement.Kind != "" {
		format = MovementNoteFormatter(d.Movement)
	}

	for _, a := range plan.Allocations {
		b := i.FindBatch(a.BatchID)
		if err := b.drain(a.Quantity); err != nil {
			// unreachable: the plan was computed from these batches
			return nil, err
		}
		if format != nil {
			b.AppendNote(format(b, a.Quantity, i.Unit))
		}
		if d.Movement.Kind != "" {
			m := d.Movement.forBatch(b.ID, a.Quantity)
			m.Unit = i.Unit
			b.Record(m)
		}
	}
	i.Touch(at)
	return plan, nil
}
