package inventory

import (
	"strings"

	"github.com/google/uuid"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
)

// Batch is a dated lot of an item.
// Quantity is the only authoritative stock figure. Notes and Movements are append-only.
type Batch struct {
	ID         string            `json:"id"`
	Quantity   int64             `json:"quantity"`
	ExpiryDate *valueobject.Date `json:"expiry_date,omitempty"`
	DateAdded  valueobject.Date  `json:"date_added"`
	Supplier   string            `json:"supplier,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Movements  []Movement        `json:"movements,omitempty"`
}

// NewBatch creates a batch entering stock on dateAdded
func NewBatch(quantity int64, expiry *valueobject.Date, supplier string, dateAdded valueobject.Date) (*Batch, error) {
	if quantity <= 0 {
		return nil, shared.NewInvalidQuantityError("quantity added must be greater than zero, got %d", quantity)
	}
	if dateAdded.IsZero() {
		return nil, shared.NewValidationError("date added is required")
	}
	var exp *valueobject.Date
	if expiry != nil && !expiry.IsZero() {
		d := *expiry
		exp = &d
	}
	return &Batch{
		ID:         uuid.NewString(),
		Quantity:   quantity,
		ExpiryDate: exp,
		DateAdded:  dateAdded,
		Supplier:   strings.TrimSpace(supplier),
	}, nil
}

// HasStock returns true if the batch has available quantity
func (b *Batch) HasStock() bool {
	return b.Quantity > 0
}

// IsExpired reports whether the expiry date is strictly before today
func (b *Batch) IsExpired(today valueobject.Date) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(today)
}

// ExpiresWithin reports whether the batch expires on or before today+days.
// Already expired batches also report true.
func (b *Batch) ExpiresWithin(today valueobject.Date, days int) bool {
	return b.ExpiryDate != nil && !b.ExpiryDate.After(today.AddDays(days))
}

// AppendNote adds a line to the notes log; existing text is never rewritten.
func (b *Batch) AppendNote(line string) {
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return
	}
	if b.Notes == "" {
		b.Notes = line
		return
	}
	b.Notes = b.Notes + "\n" + line
}

// Record appends a structured movement
func (b *Batch) Record(m Movement) {
	b.Movements = append(b.Movements, m)
}

// drain removes quantity from the batch. Callers plan first; this only guards the invariant.
func (b *Batch) drain(quantity int64) error {
	if quantity <= 0 {
		return shared.NewInvalidQuantityError("drain quantity must be greater than zero, got %d", quantity)
	}
	if quantity > b.Quantity {
		return shared.NewInsufficientStockError(quantity, b.Quantity, "")
	}
	b.Quantity -= quantity
	return nil
}

// Receive writes the inbound ledger line and movement for a freshly created batch.
// freeText always follows the generated tag on the same line.
func (b *Batch) Receive(kind MovementKind, date valueobject.Date, unit, freeText string) error {
	if kind.Direction() != DirectionIn {
		return shared.NewValidationError("%s is not an inbound movement", kind)
	}
	m := Movement{Kind: kind, Date: date, Unit: unit}.forBatch(b.ID, b.Quantity)
	b.AppendNote(FormatNote(m, freeText))
	b.Record(m)
	return nil
}

// ReceivePreTagged accepts a note whose first line already carries the ledger tag
// for this exact receipt: same kind, date and quantity. The note is kept on one line.
// Any other note is tagged by Receive.
func (b *Batch) ReceivePreTagged(kind MovementKind, date valueobject.Date, unit, note string) error {
	if !HasLedgerTag(note) {
		return b.Receive(kind, date, unit, note)
	}
	entry, ok := ParseNoteLine(firstLine(note))
	if !ok || entry.Kind != kind || !entry.Date.Equal(date) || entry.Quantity != b.Quantity {
		return b.Receive(kind, date, unit, note)
	}
	if kind.Direction() != DirectionIn {
		return shared.NewValidationError("%s is not an inbound movement", kind)
	}
	b.AppendNote(singleLine(note))
	b.Record(Movement{Kind: kind, Date: date, Unit: unit}.forBatch(b.ID, b.Quantity))
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
