package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter is nil")

// BelowThresholdCounter reports how many items sit under their reorder threshold
type BelowThresholdCounter interface {
	CountBelowThreshold(ctx context.Context) (int64, error)
}

// LedgerMetrics records stock movements and ledger operation outcomes.
type LedgerMetrics struct {
	logger *zap.Logger

	movementsTotal   *Counter
	movementQuantity *Counter
	bulkEntryErrors  *Counter
	opDuration       *Histogram

	registration metric.Registration
}

// NewLedgerMetrics registers the ledger instruments on meter.
// When below is non-nil an observable gauge reports its count on every collection.
func NewLedgerMetrics(meter metric.Meter, below BelowThresholdCounter, logger *zap.Logger) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LedgerMetrics{logger: logger}
	var err error
	if m.movementsTotal, err = NewCounter(meter, "inventory_movements_total",
		"Ledger movements recorded, one per touched batch", "{movement}"); err != nil {
		return nil, err
	}
	if m.movementQuantity, err = NewCounter(meter, "inventory_movement_quantity_total",
		"Units moved in or out of stock", "{unit}"); err != nil {
		return nil, err
	}
	if m.bulkEntryErrors, err = NewCounter(meter, "inventory_bulk_entry_errors_total",
		"Bulk entries rejected individually", "{entry}"); err != nil {
		return nil, err
	}
	if m.opDuration, err = NewHistogram(meter, "inventory_operation_duration_seconds",
		"Duration of ledger operations", "s", OperationDurationBuckets...); err != nil {
		return nil, err
	}

	if below != nil {
		gauge, err := meter.Int64ObservableGauge("inventory_items_below_threshold",
			metric.WithDescription("Items whose total stock is under the reorder threshold"),
			metric.WithUnit("{item}"))
		if err != nil {
			return nil, fmt.Errorf("failed to create below-threshold gauge: %w", err)
		}
		m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			n, err := below.CountBelowThreshold(ctx)
			if err != nil {
				m.logger.Warn("Failed to count items below threshold", zap.Error(err))
				return nil
			}
			o.ObserveInt64(gauge, n)
			return nil
		}, gauge)
		if err != nil {
			return nil, fmt.Errorf("failed to register below-threshold callback: %w", err)
		}
	}
	return m, nil
}

// RecordMovement counts one movement of quantity units of the given kind
func (m *LedgerMetrics) RecordMovement(ctx context.Context, kind, direction string, quantity int64) {
	m.movementsTotal.Inc(ctx, AttrMovementKind.String(kind), AttrDirection.String(direction))
	m.movementQuantity.Add(ctx, quantity, AttrMovementKind.String(kind), AttrDirection.String(direction))
}

// RecordBulkEntryError counts a rejected bulk entry
func (m *LedgerMetrics) RecordBulkEntryError(ctx context.Context, operation, code string) {
	m.bulkEntryErrors.Inc(ctx, AttrOperation.String(operation), AttrErrorCode.String(code))
}

// RecordOperation records the duration and outcome of a service operation
func (m *LedgerMetrics) RecordOperation(ctx context.Context, operation string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.opDuration.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// Close unregisters the gauge callback
func (m *LedgerMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
