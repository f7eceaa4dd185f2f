package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/medstock/backend/internal/infrastructure/logger"
	"github.com/medstock/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StrategyProvider resolves depletion strategies by name. An empty name selects the default.
type StrategyProvider interface {
	Get(name string) (inventory.DepletionStrategy, error)
	List() []string
	Default() string
}

// LedgerRecorder receives movement and operation measurements
type LedgerRecorder interface {
	RecordMovement(ctx context.Context, kind, direction string, quantity int64)
	RecordBulkEntryError(ctx context.Context, operation, code string)
	RecordOperation(ctx context.Context, operation string, d time.Duration, err error)
}

// Option configures an InventoryService
type Option func(*InventoryService)

// WithClock replaces time.Now. Today's date is derived from it in the service location.
func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) {
		s.now = now
	}
}

// WithLocation sets the time zone that decides which calendar day "today" is
func WithLocation(loc *time.Location) Option {
	return func(s *InventoryService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithStrategies sets the depletion strategy provider
func WithStrategies(p StrategyProvider) Option {
	return func(s *InventoryService) {
		s.strategies = p
	}
}

// WithReportSource sets the movement report source used when a request names none
func WithReportSource(src inventory.ReportSource) Option {
	return func(s *InventoryService) {
		if src.IsValid() {
			s.reportSource = src
		}
	}
}

// InventoryService handles batch mutations, bulk operations and stock queries
type InventoryService struct {
	repo         inventory.ItemRepository
	scope        TransactionScope
	strategies   StrategyProvider
	recorder     LedgerRecorder
	logger       *zap.Logger
	now          func() time.Time
	loc          *time.Location
	reportSource inventory.ReportSource
}

// NewInventoryService creates a new InventoryService.
// A nil scope runs every cycle directly against repo.
func NewInventoryService(
	repo inventory.ItemRepository,
	scope TransactionScope,
	log *zap.Logger,
	opts ...Option,
) *InventoryService {
	if scope == nil {
		scope = NewNoOpTransactionScope(repo)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &InventoryService{
		repo:         repo,
		scope:        scope,
		logger:       log.Named("inventory"),
		now:          time.Now,
		loc:          time.Local,
		reportSource: inventory.ReportSourceNotes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRecorder sets the ledger metrics recorder (optional)
func (s *InventoryService) SetRecorder(r LedgerRecorder) {
	s.recorder = r
}

// Today returns the current calendar date in the service location
func (s *InventoryService) Today() valueobject.Date {
	return valueobject.DateOf(s.now().In(s.loc))
}

func (s *InventoryService) log(ctx context.Context) *zap.Logger {
	return logger.L(logger.WithContext(ctx, s.logger))
}

// finish closes out an operation: the span is marked failed and the duration recorded
func (s *InventoryService) finish(ctx context.Context, span trace.Span, operation string, started time.Time, err error) {
	telemetry.RecordError(span, err)
	if s.recorder != nil {
		s.recorder.RecordOperation(ctx, operation, time.Since(started), err)
	}
}

func (s *InventoryService) recordMovement(ctx context.Context, kind inventory.MovementKind, quantity int64) {
	if s.recorder != nil {
		s.recorder.RecordMovement(ctx, string(kind), string(kind.Direction()), quantity)
	}
}

// strategy resolves a strategy name. Without a provider only the built-in names are known.
func (s *InventoryService) strategy(name string) (inventory.DepletionStrategy, error) {
	if s.strategies != nil {
		return s.strategies.Get(name)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", inventory.StrategyFEFO:
		return inventory.NewFEFOStrategy(), nil
	case inventory.StrategyFIFO:
		return inventory.NewFIFOStrategy(), nil
	}
	return nil, shared.NewValidationError("unknown depletion strategy %q", name)
}

func definitionOf(name, category, unit string, threshold decimal.Decimal, notes, origin string) (inventory.Definition, error) {
	cat, err := inventory.ParseCategory(category)
	if err != nil {
		return inventory.Definition{}, err
	}
	def := inventory.Definition{
		Name:          name,
		Category:      cat,
		Unit:          strings.TrimSpace(unit),
		MinThreshold:  threshold,
		Notes:         notes,
		OriginCountry: origin,
	}
	return def, def.Validate()
}

// CreateItem creates an item holding one initial batch tagged "Initial Stock"
func (s *InventoryService) CreateItem(ctx context.Context, in CreateItemInput) (resp *ItemResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "create_item",
		telemetry.SpanAttrQuantity, in.InitialQuantity)
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "create_item", started, err) }(time.Now())

	def, err := definitionOf(in.Name, in.Category, in.Unit, in.MinThreshold, in.Notes, in.OriginCountry)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	batch, err := inventory.NewBatch(in.InitialQuantity, in.ExpiryDate, in.Supplier, today)
	if err != nil {
		return nil, err
	}
	if err := batch.Receive(inventory.MovementInitialStock, today, def.Unit, in.BatchNotes); err != nil {
		return nil, err
	}
	item, err := inventory.NewItem(def, batch, s.now())
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrItemID, item.ID)

	err = s.scope.Execute(ctx, item.ID, func(repo inventory.ItemRepository) error {
		return repo.Save(ctx, item)
	})
	if err != nil {
		s.log(ctx).Error("Failed to create item", zap.String("name", item.Name), zap.Error(err))
		return nil, err
	}

	s.recordMovement(ctx, inventory.MovementInitialStock, in.InitialQuantity)
	s.log(ctx).Info("Item created",
		zap.String("item_id", item.ID),
		zap.String("kind", string(inventory.MovementInitialStock)),
		zap.Int64("quantity", in.InitialQuantity),
	)
	out := ToItemResponse(item, today)
	return &out, nil
}

// UpdateItem replaces the definition of an item. Batches are not touched.
func (s *InventoryService) UpdateItem(ctx context.Context, itemID string, in UpdateItemInput) (resp *ItemResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "update_item", telemetry.SpanAttrItemID, itemID)
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "update_item", started, err) }(time.Now())

	def, err := definitionOf(in.Name, in.Category, in.Unit, in.MinThreshold, in.Notes, in.OriginCountry)
	if err != nil {
		return nil, err
	}

	var updated *inventory.Item
	err = s.scope.Execute(ctx, itemID, func(repo inventory.ItemRepository) error {
		item, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if err := item.Redefine(def, s.now()); err != nil {
			return err
		}
		if err := repo.Save(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx).Info("Item updated", zap.String("item_id", itemID))
	out := ToItemResponse(updated, s.Today())
	return &out, nil
}

// DeleteItem removes an item and all its batches
func (s *InventoryService) DeleteItem(ctx context.Context, itemID string) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "delete_item", telemetry.SpanAttrItemID, itemID)
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "delete_item", started, err) }(time.Now())

	err = s.scope.Execute(ctx, itemID, func(repo inventory.ItemRepository) error {
		return repo.Delete(ctx, itemID)
	})
	if err != nil {
		return err
	}
	s.log(ctx).Info("Item deleted", zap.String("item_id", itemID))
	return nil
}

// receipt is one inbound batch and the tag it is written under
type receipt struct {
	kind inventory.MovementKind
	in   AddBatchInput
}

// AddBatch adds a batch dated today, tagged "Stock Addition"
func (s *InventoryService) AddBatch(ctx context.Context, itemID string, in AddBatchInput) (resp *ItemResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "add_batch",
		telemetry.SpanAttrItemID, itemID,
		telemetry.SpanAttrQuantity, in.Quantity,
	)
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "add_batch", started, err) }(time.Now())

	item, err := s.addBatch(ctx, itemID, receipt{kind: inventory.MovementStockAddition, in: in})
	if err != nil {
		return nil, err
	}
	out := ToItemResponse(item, s.Today())
	return &out, nil
}

func (s *InventoryService) addBatch(ctx context.Context, itemID string, r receipt) (*inventory.Item, error) {
	if r.in.Quantity <= 0 {
		return nil, shared.NewInvalidQuantityError("quantity added must be greater than zero, got %d", r.in.Quantity)
	}

	today := s.Today()
	var updated *inventory.Item
	err := s.scope.Execute(ctx, itemID, func(repo inventory.ItemRepository) error {
		item, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		batch, err := inventory.NewBatch(r.in.Quantity, r.in.ExpiryDate, r.in.Supplier, today)
		if err != nil {
			return err
		}

		receive := batch.Receive
		if r.kind == inventory.MovementBulkAddStock {
			receive = batch.ReceivePreTagged
		}
		if err := receive(r.kind, today, item.Unit, r.in.Notes); err != nil {
			return err
		}
		if err := item.AddBatch(batch, s.now()); err != nil {
			return err
		}
		if err := repo.Save(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordMovement(ctx, r.kind, r.in.Quantity)
	s.log(ctx).Info("Stock added",
		zap.String("item_id", itemID),
		zap.String("kind", string(r.kind)),
		zap.Int64("quantity", r.in.Quantity),
	)
	return updated, nil
}

// ConsumeStock takes stock out for internal use. A reason is mandatory.
func (s *InventoryService) ConsumeStock(ctx context.Context, itemID string, in ConsumeInput) (res *DepletionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "consume",
		telemetry.SpanAttrItemID, itemID,
		telemetry.SpanAttrQuantity, in.Quantity,
	)
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "consume", started, err) }(time.Now())

	if strings.TrimSpace(in.Reason) == "" {
		return nil, shared.NewValidationError("reason is required for stock out")
	}
	strat, err := s.strategy(in.Strategy)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrStrategy, strat.Name())

	item, plan, err := s.deplete(ctx, itemID, in.Quantity, strat, inventory.Movement{
		Kind:   inventory.MovementStockOut,
		Date:   s.Today(),
		Reason: in.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &DepletionResult{Item: ToItemResponse(item, s.Today()), Plan: plan}, nil
}

// ReleaseStock hands stock to a recipient. A recipient is mandatory; the date defaults to today.
func (s *InventoryService) ReleaseStock(ctx context.Context, itemID string, in ReleaseInput) (res *DepletionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "release",
		telemetry.SpanAttrItemID, itemID,
		telemetry.SpanAttrQuantity, in.Quantity,
	)
	defer span.End()
	defer func(started time.Time) { s.finish(ctx, span, "release", started, err) }(time.Now())

	recipient := strings.TrimSpace(in.Recipient)
	if recipient == "" {
		return nil, shared.NewValidationError("recipient is required for stock release")
	}
	strat, err := s.strategy(in.Strategy)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrStrategy, strat.Name())

	item, plan, err := s.deplete(ctx, itemID, in.Quantity, strat, inventory.Movement{
		Kind:      inventory.MovementStockRelease,
		Date:      s.dateOrToday(in.Date),
		Recipient: recipient,
		Reason:    in.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &DepletionResult{Item: ToItemResponse(item, s.Today()), Plan: plan}, nil
}

func (s *InventoryService) dateOrToday(d *valueobject.Date) valueobject.Date {
	if d == nil || d.IsZero() {
		return s.Today()
	}
	return *d
}

// deplete runs one depletion as a single read-modify-write cycle on the item.
// Nothing is saved unless the whole quantity could be allocated.
func (s *InventoryService) deplete(
	ctx context.Context,
	itemID string,
	quantity int64,
	strat inventory.DepletionStrategy,
	tmpl inventory.Movement,
) (*inventory.Item, *inventory.DepletionPlan, error) {
	if quantity <= 0 {
		return nil, nil, shared.NewInvalidQuantityError("quantity must be greater than zero, got %d", quantity)
	}

	var (
		item *inventory.Item
		plan *inventory.DepletionPlan
	)
	err := s.scope.Execute(ctx, itemID, func(repo inventory.ItemRepository) error {
		found, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		p, err := found.Deplete(inventory.Depletion{
			Quantity: quantity,
			Strategy: strat,
			Movement: tmpl,
		}, s.now())
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, found); err != nil {
			return err
		}
		item, plan = found, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.recordMovement(ctx, tmpl.Kind, quantity)
	s.log(ctx).Info("Stock depleted",
		zap.String("item_id", itemID),
		zap.String("kind", string(tmpl.Kind)),
		zap.Int64("quantity", quantity),
		zap.String("strategy", plan.Strategy),
		zap.Int("batches", len(plan.Allocations)),
	)
	return item, plan, nil
}
