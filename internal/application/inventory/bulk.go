package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/medstock/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// VoucherPrefix starts every bulk release voucher id
const VoucherPrefix = "BRV"

// codeInternal is reported for entry failures that carry no domain code
const codeInternal = "INTERNAL_ERROR"

// NewVoucherID returns a voucher id such as BRV-20250131-1F3A9C
func NewVoucherID(date valueobject.Date) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", VoucherPrefix, date.Time().Format("20060102"), suffix)
}

func entryError(index int, itemID string, err error) EntryError {
	code := shared.CodeOf(err)
	if code == "" {
		code = codeInternal
	}
	return EntryError{Index: index, ItemID: itemID, Code: code, Message: err.Error()}
}

// BulkRelease releases several items to one recipient under a shared voucher.
// Entries are processed in order and independently: a failed entry is reported
// in Errors and leaves its item untouched, while later entries still run.
// Only request-level problems (no recipient, no entries, unknown strategy) fail the call.
func (s *InventoryService) BulkRelease(ctx context.Context, in BulkReleaseInput) (res *BulkReleaseResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "bulk_release",
		telemetry.SpanAttrEntries, len(in.Entries))
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "bulk_release", started, err) }(time.Now())

	recipient := strings.TrimSpace(in.Recipient)
	if recipient == "" {
		return nil, shared.NewValidationError("recipient is required for bulk release")
	}
	if len(in.Entries) == 0 {
		return nil, shared.NewValidationError("at least one entry is required")
	}
	strat, err := s.strategy(in.Strategy)
	if err != nil {
		return nil, err
	}

	date := s.dateOrToday(in.Date)
	voucherID := NewVoucherID(date)
	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherID, voucherID)

	tmpl := inventory.Movement{
		Kind:      inventory.MovementBulkStockRelease,
		Date:      date,
		Recipient: recipient,
		Reason:    in.Reason,
		VoucherID: voucherID,
	}

	result := &BulkReleaseResult{
		VoucherID:      voucherID,
		ProcessedItems: make([]ReleasedItem, 0, len(in.Entries)),
		Errors:         make([]EntryError, 0),
	}
	for i, entry := range in.Entries {
		item, plan, err := s.releaseEntry(ctx, entry, strat, tmpl)
		if err != nil {
			result.Errors = append(result.Errors, entryError(i, entry.ItemID, err))
			s.entryFailed(ctx, "bulk_release", i, entry.ItemID, err)
			continue
		}
		result.ProcessedItems = append(result.ProcessedItems, ReleasedItem{
			ItemID:      item.ID,
			ItemName:    item.Name,
			Unit:        item.Unit,
			Quantity:    plan.Total(),
			Allocations: plan.Allocations,
		})
	}
	result.Success = len(result.Errors) == 0 && len(result.ProcessedItems) > 0

	s.log(ctx).Info("Bulk release completed",
		zap.String("voucher_id", voucherID),
		zap.Int("processed", len(result.ProcessedItems)),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func (s *InventoryService) releaseEntry(
	ctx context.Context,
	entry BulkReleaseEntry,
	strat inventory.DepletionStrategy,
	tmpl inventory.Movement,
) (*inventory.Item, *inventory.DepletionPlan, error) {
	if strings.TrimSpace(entry.ItemID) == "" {
		return nil, nil, shared.NewValidationError("item id is required")
	}
	return s.deplete(ctx, entry.ItemID, entry.Quantity, strat, tmpl)
}

// BulkAdd adds one batch per entry, each tagged "Bulk Add Stock".
// Entries are isolated the same way as in BulkRelease.
func (s *InventoryService) BulkAdd(ctx context.Context, in BulkAddInput) (res *BulkAddResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "bulk_add",
		telemetry.SpanAttrEntries, len(in.Entries))
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "bulk_add", started, err) }(time.Now())

	if len(in.Entries) == 0 {
		return nil, shared.NewValidationError("at least one entry is required")
	}

	today := s.Today()
	result := &BulkAddResult{
		UpdatedItems: make([]ItemResponse, 0, len(in.Entries)),
		Errors:       make([]EntryError, 0),
	}
	for i, entry := range in.Entries {
		if strings.TrimSpace(entry.ItemID) == "" {
			err := shared.NewValidationError("item id is required")
			result.Errors = append(result.Errors, entryError(i, entry.ItemID, err))
			s.entryFailed(ctx, "bulk_add", i, entry.ItemID, err)
			continue
		}
		item, err := s.addBatch(ctx, entry.ItemID, receipt{
			kind: inventory.MovementBulkAddStock,
			in: AddBatchInput{
				Quantity:   entry.Quantity,
				ExpiryDate: entry.ExpiryDate,
				Supplier:   entry.Supplier,
				Notes:      entry.Notes,
			},
		})
		if err != nil {
			result.Errors = append(result.Errors, entryError(i, entry.ItemID, err))
			s.entryFailed(ctx, "bulk_add", i, entry.ItemID, err)
			continue
		}
		result.UpdatedItems = append(result.UpdatedItems, ToItemResponse(item, today))
	}
	result.Success = len(result.Errors) == 0 && len(result.UpdatedItems) > 0

	s.log(ctx).Info("Bulk add completed",
		zap.Int("updated", len(result.UpdatedItems)),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func (s *InventoryService) entryFailed(ctx context.Context, operation string, index int, itemID string, err error) {
	s.log(ctx).Warn("Bulk entry failed",
		zap.String("operation", operation),
		zap.Int("index", index),
		zap.String("item_id", itemID),
		zap.Error(err),
	)
	if s.recorder != nil {
		code := shared.CodeOf(err)
		if code == "" {
			code = codeInternal
		}
		s.recorder.RecordBulkEntryError(ctx, operation, code)
	}
}
