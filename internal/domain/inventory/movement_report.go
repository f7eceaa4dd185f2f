package inventory

import (
	"strings"

	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
)

// ReportSource selects where movement history is read from
type ReportSource string

const (
	// ReportSourceNotes parses tagged lines out of batch notes
	ReportSourceNotes ReportSource = "notes"
	// ReportSourceLedger reads the structured movements recorded on batches
	ReportSourceLedger ReportSource = "ledger"
)

// IsValid checks if the source is known
func (s ReportSource) IsValid() bool {
	return s == ReportSourceNotes || s == ReportSourceLedger
}

// ParseReportSource parses a report source, defaulting to notes when empty
func ParseReportSource(s string) (ReportSource, error) {
	if strings.TrimSpace(s) == "" {
		return ReportSourceNotes, nil
	}
	src := ReportSource(strings.ToLower(strings.TrimSpace(s)))
	if !src.IsValid() {
		return "", shared.NewValidationError("unknown report source %q", s)
	}
	return src, nil
}

// MovementTotals aggregates in and out movements
type MovementTotals struct {
	QuantityIn           int64 `json:"quantity_in"`
	QuantityOut          int64 `json:"quantity_out"`
	StockInTransactions  int   `json:"stock_in_transactions"`
	StockOutTransactions int   `json:"stock_out_transactions"`
	NetChange            int64 `json:"net_change"`
}

func (t *MovementTotals) add(kind MovementKind, quantity int64) {
	if kind.Direction() == DirectionOut {
		t.QuantityOut += quantity
		t.StockOutTransactions++
	} else {
		t.QuantityIn += quantity
		t.StockInTransactions++
	}
	t.NetChange = t.QuantityIn - t.QuantityOut
}

// ItemMovement is the per-item slice of a movement report
type ItemMovement struct {
	ItemID   string   `json:"item_id"`
	ItemName string   `json:"item_name"`
	Unit     string   `json:"unit"`
	Category Category `json:"category"`
	MovementTotals
}

// MovementReport summarizes stock movements over an inclusive date range
type MovementReport struct {
	Start   valueobject.Date `json:"start"`
	End     valueobject.Date `json:"end"`
	Source  ReportSource     `json:"source"`
	Summary MovementTotals   `json:"summary"`
	Items   []ItemMovement   `json:"items"`
}

type movementEvent struct {
	kind     MovementKind
	date     valueobject.Date
	quantity int64
}

// ReconstructMovements rebuilds movement history by parsing the tagged lines in batch notes.
// Lines whose tag was edited beyond recognition are silently skipped.
func ReconstructMovements(items []*Item, start, end valueobject.Date) (*MovementReport, error) {
	return buildReport(items, start, end, ReportSourceNotes, func(b *Batch) []movementEvent {
		entries := ParseNotes(b.Notes)
		events := make([]movementEvent, 0, len(entries))
		for _, e := range entries {
			events = append(events, movementEvent{kind: e.Kind, date: e.Date, quantity: e.Quantity})
		}
		return events
	})
}

// AggregateLedger computes the same report from the structured movement records.
func AggregateLedger(items []*Item, start, end valueobject.Date) (*MovementReport, error) {
	return buildReport(items, start, end, ReportSourceLedger, func(b *Batch) []movementEvent {
		events := make([]movementEvent, 0, len(b.Movements))
		for _, m := range b.Movements {
			if !m.Kind.IsValid() {
				continue
			}
			events = append(events, movementEvent{kind: m.Kind, date: m.Date, quantity: m.Quantity})
		}
		return events
	})
}

// BuildMovementReport dispatches on the report source
func BuildMovementReport(items []*Item, start, end valueobject.Date, source ReportSource) (*MovementReport, error) {
	if source == ReportSourceLedger {
		return AggregateLedger(items, start, end)
	}
	return ReconstructMovements(items, start, end)
}

func buildReport(
	items []*Item,
	start, end valueobject.Date,
	source ReportSource,
	eventsOf func(*Batch) []movementEvent,
) (*MovementReport, error) {
	if start.IsZero() || end.IsZero() {
		return nil, shared.NewValidationError("start and end dates are required")
	}
	if start.After(end) {
		return nil, shared.NewValidationError("start date %s is after end date %s", start, end)
	}

	report := &MovementReport{
		Start:  start,
		End:    end,
		Source: source,
		Items:  make([]ItemMovement, 0),
	}
	for _, item := range items {
		row := ItemMovement{
			ItemID:   item.ID,
			ItemName: item.Name,
			Unit:     item.Unit,
			Category: item.Category,
		}
		matched := false
		for _, b := range item.Batches {
			for _, ev := range eventsOf(b) {
				if !ev.date.Between(start, end) {
					continue
				}
				row.add(ev.kind, ev.quantity)
				report.Summary.add(ev.kind, ev.quantity)
				matched = true
			}
		}
		if matched {
			report.Items = append(report.Items, row)
		}
	}
	return report, nil
}
