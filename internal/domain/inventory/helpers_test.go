package inventory

import (
	"time"

	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.February, 10, 9, 30, 0, 0, time.UTC)

func datePtr(s string) *valueobject.Date {
	d := valueobject.MustParseDate(s)
	return &d
}

func newTestBatch(id string, quantity int64, expiry string, added string) *Batch {
	b := &Batch{
		ID:        id,
		Quantity:  quantity,
		DateAdded: valueobject.MustParseDate(added),
	}
	if expiry != "" {
		b.ExpiryDate = datePtr(expiry)
	}
	return b
}

func newTestItem(batches ...*Batch) *Item {
	return &Item{
		ID:           "item-1",
		Name:         "Saline 0.9% 500ml",
		Category:     CategoryConsumable,
		Unit:         "bags",
		MinThreshold: decimal.NewFromInt(10),
		Batches:      batches,
	}
}

func quantities(item *Item) map[string]int64 {
	out := make(map[string]int64, len(item.Batches))
	for _, b := range item.Batches {
		out[b.ID] = b.Quantity
	}
	return out
}
