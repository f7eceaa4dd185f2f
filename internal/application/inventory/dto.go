package inventory

import (
	"time"

	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CreateItemInput defines an item and its initial stock batch
type CreateItemInput struct {
	Name          string
	Category      string
	Unit          string
	MinThreshold  decimal.Decimal
	Notes         string
	OriginCountry string

	InitialQuantity int64
	ExpiryDate      *valueobject.Date
	Supplier        string
	BatchNotes      string
}

// UpdateItemInput replaces an item definition
type UpdateItemInput struct {
	Name          string
	Category      string
	Unit          string
	MinThreshold  decimal.Decimal
	Notes         string
	OriginCountry string
}

// AddBatchInput adds stock to an existing item
type AddBatchInput struct {
	Quantity   int64
	ExpiryDate *valueobject.Date
	Supplier   string
	// Notes is free text. A note that already starts with a ledger tag is stored as given.
	Notes string
}

// ConsumeInput takes stock out for internal use
type ConsumeInput struct {
	Quantity int64
	Reason   string
	Strategy string
}

// ReleaseInput hands stock over to a recipient
type ReleaseInput struct {
	Quantity  int64
	Recipient string
	Reason    string
	// Date of the release; nil means today
	Date     *valueobject.Date
	Strategy string
}

// BulkReleaseEntry is one line of a bulk release
type BulkReleaseEntry struct {
	ItemID   string
	Quantity int64
}

// BulkReleaseInput releases several items to one recipient under one voucher
type BulkReleaseInput struct {
	Recipient string
	Reason    string
	Date      *valueobject.Date
	Strategy  string
	Entries   []BulkReleaseEntry
}

// BulkAddEntry is one line of a bulk add
type BulkAddEntry struct {
	ItemID     string
	Quantity   int64
	ExpiryDate *valueobject.Date
	Supplier   string
	Notes      string
}

// BulkAddInput adds a batch to each listed item
type BulkAddInput struct {
	Entries []BulkAddEntry
}

// EntryError reports why one bulk entry was rejected
type EntryError struct {
	Index   int    `json:"index"`
	ItemID  string `json:"item_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReleasedItem is a successfully released bulk entry
type ReleasedItem struct {
	ItemID      string                 `json:"item_id"`
	ItemName    string                 `json:"item_name"`
	Unit        string                 `json:"unit"`
	Quantity    int64                  `json:"quantity"`
	Allocations []inventory.Allocation `json:"allocations"`
}

// BulkReleaseResult is the aggregate outcome of a bulk release.
// Success is true only when every entry succeeded and at least one was processed.
type BulkReleaseResult struct {
	VoucherID      string         `json:"voucher_id"`
	ProcessedItems []ReleasedItem `json:"processed_items"`
	Errors         []EntryError   `json:"errors"`
	Success        bool           `json:"success"`
}

// BulkAddResult is the aggregate outcome of a bulk add
type BulkAddResult struct {
	UpdatedItems []ItemResponse `json:"updated_items"`
	Errors       []EntryError   `json:"errors"`
	Success      bool           `json:"success"`
}

// DepletionResult is returned by consume and release
type DepletionResult struct {
	Item ItemResponse             `json:"item"`
	Plan *inventory.DepletionPlan `json:"plan"`
}

// BatchResponse is a batch with derived flags
type BatchResponse struct {
	*inventory.Batch
	Expired bool `json:"expired"`
}

// ItemResponse is an item with its computed aggregates
type ItemResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Category       inventory.Category `json:"category"`
	Unit           string             `json:"unit"`
	MinThreshold   decimal.Decimal    `json:"min_threshold"`
	Notes          string             `json:"notes,omitempty"`
	OriginCountry  string             `json:"origin_country,omitempty"`
	LastUpdated    time.Time          `json:"last_updated"`
	TotalQuantity  int64              `json:"total_quantity"`
	SoonestExpiry  *valueobject.Date  `json:"soonest_expiry"`
	BelowThreshold bool               `json:"below_threshold"`
	Batches        []BatchResponse    `json:"batches"`
}

// ToItemResponse converts a domain item, evaluating expiry against today
func ToItemResponse(item *inventory.Item, today valueobject.Date) ItemResponse {
	batches := make([]BatchResponse, 0, len(item.Batches))
	for _, b := range item.Batches {
		batches = append(batches, BatchResponse{Batch: b, Expired: b.IsExpired(today)})
	}
	return ItemResponse{
		ID:             item.ID,
		Name:           item.Name,
		Category:       item.Category,
		Unit:           item.Unit,
		MinThreshold:   item.MinThreshold,
		Notes:          item.Notes,
		OriginCountry:  item.OriginCountry,
		LastUpdated:    item.LastUpdated,
		TotalQuantity:  item.TotalQuantity(),
		SoonestExpiry:  item.SoonestExpiry(today),
		BelowThreshold: item.IsBelowThreshold(),
		Batches:        batches,
	}
}

// ListFilter selects items in listings
type ListFilter struct {
	Category       string
	Search         string
	BelowThreshold bool
}

// ExpiringBatch is a batch with stock that expires within the requested window
type ExpiringBatch struct {
	ItemID          string           `json:"item_id"`
	ItemName        string           `json:"item_name"`
	Unit            string           `json:"unit"`
	BatchID         string           `json:"batch_id"`
	Quantity        int64            `json:"quantity"`
	ExpiryDate      valueobject.Date `json:"expiry_date"`
	DaysUntilExpiry int              `json:"days_until_expiry"`
	Expired         bool             `json:"expired"`
	Supplier        string           `json:"supplier,omitempty"`
}

// StrategyInfo describes a depletion strategy callers may name
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}
