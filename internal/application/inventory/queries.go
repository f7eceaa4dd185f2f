package inventory

import (
	"context"
	"sort"
	"strings"

	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/medstock/backend/internal/infrastructure/telemetry"
)

// GetItem returns one item with its computed aggregates
func (s *InventoryService) GetItem(ctx context.Context, itemID string) (*ItemResponse, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	out := ToItemResponse(item, s.Today())
	return &out, nil
}

// ListItems returns the items matching filter, in stored order
func (s *InventoryService) ListItems(ctx context.Context, filter ListFilter) ([]ItemResponse, error) {
	f := inventory.ItemFilter{
		Search:         filter.Search,
		BelowThreshold: filter.BelowThreshold,
	}
	if strings.TrimSpace(filter.Category) != "" {
		cat, err := inventory.ParseCategory(filter.Category)
		if err != nil {
			return nil, err
		}
		f.Category = cat
	}

	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, ToItemResponse(item, today))
		}
	}
	return out, nil
}

// ListExpiringBatches returns batches holding stock that expire within withinDays of today.
// Already expired batches are included and flagged. Results are sorted by expiry date.
func (s *InventoryService) ListExpiringBatches(ctx context.Context, withinDays int) ([]ExpiringBatch, error) {
	if withinDays < 0 {
		return nil, shared.NewValidationError("within_days cannot be negative, got %d", withinDays)
	}
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	out := make([]ExpiringBatch, 0)
	for _, item := range items {
		for _, b := range item.Batches {
			if !b.HasStock() || b.ExpiryDate == nil || !b.ExpiresWithin(today, withinDays) {
				continue
			}
			out = append(out, ExpiringBatch{
				ItemID:          item.ID,
				ItemName:        item.Name,
				Unit:            item.Unit,
				BatchID:         b.ID,
				Quantity:        b.Quantity,
				ExpiryDate:      *b.ExpiryDate,
				DaysUntilExpiry: today.DaysUntil(*b.ExpiryDate),
				Expired:         b.IsExpired(today),
				Supplier:        b.Supplier,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out, nil
}

// MovementReport aggregates stock movements over the inclusive range [start, end].
// An empty source uses the configured default.
func (s *InventoryService) MovementReport(ctx context.Context, start, end valueobject.Date, source string) (report *inventory.MovementReport, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "movement_report")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	src := s.reportSource
	if strings.TrimSpace(source) != "" {
		if src, err = inventory.ParseReportSource(source); err != nil {
			return nil, err
		}
	}

	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.BuildMovementReport(items, start, end, src)
}

// CountBelowThreshold returns how many items hold less than their reorder threshold
func (s *InventoryService) CountBelowThreshold(ctx context.Context) (int64, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, item := range items {
		if item.IsBelowThreshold() {
			n++
		}
	}
	return n, nil
}

// ListStrategies describes the depletion strategies callers may select, sorted by name
func (s *InventoryService) ListStrategies() []StrategyInfo {
	if s.strategies == nil {
		return []StrategyInfo{
			{Name: inventory.StrategyFEFO, Description: inventory.NewFEFOStrategy().Description(), Default: true},
			{Name: inventory.StrategyFIFO, Description: inventory.NewFIFOStrategy().Description()},
		}
	}
	def := s.strategies.Default()
	names := s.strategies.List()
	out := make([]StrategyInfo, 0, len(names))
	for _, name := range names {
		strat, err := s.strategies.Get(name)
		if err != nil {
			continue
		}
		out = append(out, StrategyInfo{Name: name, Description: strat.Description(), Default: name == def})
	}
	return out
}
