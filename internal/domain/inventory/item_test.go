package inventory

import (
	"testing"

	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategory(t *testing.T) {
	t.Run("parses case-insensitively", func(t *testing.T) {
		c, err := ParseCategory(" Medication ")
		require.NoError(t, err)
		assert.Equal(t, CategoryMedication, c)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := ParseCategory("snacks")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("all categories are valid", func(t *testing.T) {
		for _, c := range AllCategories() {
			assert.True(t, c.IsValid(), c)
		}
	})
}

func TestNewItem(t *testing.T) {
	def := Definition{
		Name:         "  Gauze swabs ",
		Category:     CategoryConsumable,
		Unit:         "packs",
		MinThreshold: decimal.NewFromInt(5),
	}

	t.Run("creates item with its initial batch", func(t *testing.T) {
		batch, err := NewBatch(15, nil, "MedSupply", valueobject.DateOf(testNow))
		require.NoError(t, err)

		item, err := NewItem(def, batch, testNow)
		require.NoError(t, err)
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "Gauze swabs", item.Name)
		assert.Len(t, item.Batches, 1)
		assert.Equal(t, int64(15), item.TotalQuantity())
		assert.Equal(t, testNow, item.LastUpdated)
	})

	t.Run("requires an initial batch", func(t *testing.T) {
		_, err := NewItem(def, nil, testNow)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("validates the definition", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(d *Definition)
		}{
			{"blank name", func(d *Definition) { d.Name = "  " }},
			{"unknown category", func(d *Definition) { d.Category = "toys" }},
			{"blank unit", func(d *Definition) { d.Unit = "" }},
			{"negative threshold", func(d *Definition) { d.MinThreshold = decimal.NewFromInt(-1) }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d := def
				tt.mutate(&d)
				_, err := NewItem(d, newTestBatch("b1", 1, "", "2025-01-01"), testNow)
				assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
			})
		}
	})
}

func TestItemTotalQuantity(t *testing.T) {
	t.Run("empty item holds zero", func(t *testing.T) {
		assert.Equal(t, int64(0), newTestItem().TotalQuantity())
	})

	t.Run("sums every batch including drained ones", func(t *testing.T) {
		item := newTestItem(
			newTestBatch("b1", 30, "2025-06-01", "2025-01-01"),
			newTestBatch("b2", 0, "2025-01-01", "2025-01-02"),
			newTestBatch("b3", 12, "", "2025-01-03"),
		)
		assert.Equal(t, int64(42), item.TotalQuantity())
	})
}

func TestItemSoonestExpiry(t *testing.T) {
	today := valueobject.MustParseDate("2025-02-10")

	tests := []struct {
		name    string
		batches []*Batch
		want    string
	}{
		{
			name:    "no batches",
			batches: nil,
		},
		{
			name: "picks earliest dated batch with stock",
			batches: []*Batch{
				newTestBatch("b1", 5, "2025-09-01", "2025-01-01"),
				newTestBatch("b2", 5, "2025-03-01", "2025-01-02"),
				newTestBatch("b3", 5, "", "2025-01-03"),
			},
			want: "2025-03-01",
		},
		{
			name: "ignores empty batches",
			batches: []*Batch{
				newTestBatch("b1", 0, "2025-02-15", "2025-01-01"),
				newTestBatch("b2", 5, "2025-04-01", "2025-01-02"),
			},
			want: "2025-04-01",
		},
		{
			name: "ignores batches expired before today",
			batches: []*Batch{
				newTestBatch("b1", 5, "2025-02-09", "2025-01-01"),
				newTestBatch("b2", 5, "2025-05-01", "2025-01-02"),
			},
			want: "2025-05-01",
		},
		{
			name: "today counts as not expired",
			batches: []*Batch{
				newTestBatch("b1", 5, "2025-02-10", "2025-01-01"),
				newTestBatch("b2", 5, "2025-05-01", "2025-01-02"),
			},
			want: "2025-02-10",
		},
		{
			name: "only undated or expired stock",
			batches: []*Batch{
				newTestBatch("b1", 5, "", "2025-01-01"),
				newTestBatch("b2", 5, "2024-12-31", "2025-01-02"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestItem(tt.batches...).SoonestExpiry(today)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestItemThresholdAndFilter(t *testing.T) {
	item := newTestItem(newTestBatch("b1", 8, "", "2025-01-01"))
	assert.True(t, item.IsBelowThreshold())

	item.MinThreshold = decimal.NewFromInt(8)
	assert.False(t, item.IsBelowThreshold())

	item.MinThreshold = decimal.RequireFromString("8.5")
	assert.True(t, item.IsBelowThreshold())

	assert.True(t, ItemFilter{}.Matches(item))
	assert.True(t, ItemFilter{Search: "saline"}.Matches(item))
	assert.False(t, ItemFilter{Search: "gauze"}.Matches(item))
	assert.True(t, ItemFilter{Category: CategoryConsumable, BelowThreshold: true}.Matches(item))
	assert.False(t, ItemFilter{Category: CategoryMedication}.Matches(item))
}

func TestItemRedefine(t *testing.T) {
	item := newTestItem(newTestBatch("b1", 8, "", "2025-01-01"))
	before := quantities(item)

	def := item.Definition()
	def.Name = "Saline 0.9% 1000ml"
	def.OriginCountry = "DE"
	require.NoError(t, item.Redefine(def, testNow))

	assert.Equal(t, "Saline 0.9% 1000ml", item.Name)
	assert.Equal(t, "DE", item.OriginCountry)
	assert.Equal(t, testNow, item.LastUpdated)
	assert.Equal(t, before, quantities(item))

	def.Name = ""
	assert.Error(t, item.Redefine(def, testNow))
	assert.Equal(t, "Saline 0.9% 1000ml", item.Name)
}

func TestItemAddBatch(t *testing.T) {
	item := newTestItem(newTestBatch("b1", 8, "", "2025-01-01"))

	require.NoError(t, item.AddBatch(newTestBatch("b2", 4, "", "2025-02-10"), testNow))
	assert.Equal(t, int64(12), item.TotalQuantity())
	assert.Equal(t, testNow, item.LastUpdated)

	err := item.AddBatch(newTestBatch("b3", 0, "", "2025-02-10"), testNow)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidQuantity))

	err = item.AddBatch(newTestBatch("b2", 1, "", "2025-02-10"), testNow)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestBatch(t *testing.T) {
	t.Run("NewBatch rejects non-positive quantity", func(t *testing.T) {
		_, err := NewBatch(0, nil, "", valueobject.DateOf(testNow))
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	})

	t.Run("AppendNote keeps existing text", func(t *testing.T) {
		b := newTestBatch("b1", 1, "", "2025-01-01")
		b.AppendNote("first")
		b.AppendNote("second\n")
		b.AppendNote("")
		assert.Equal(t, "first\nsecond", b.Notes)
	})

	t.Run("expiry checks use calendar days", func(t *testing.T) {
		today := valueobject.MustParseDate("2025-02-10")
		b := newTestBatch("b1", 1, "2025-02-10", "2025-01-01")
		assert.False(t, b.IsExpired(today))
		assert.True(t, b.IsExpired(today.AddDays(1)))
		assert.True(t, b.ExpiresWithin(today, 0))
		assert.False(t, newTestBatch("b2", 1, "2025-03-15", "2025-01-01").ExpiresWithin(today, 30))
		assert.False(t, newTestBatch("b3", 1, "", "2025-01-01").ExpiresWithin(today, 365))
	})
}

func TestBatchReceive(t *testing.T) {
	day := valueobject.MustParseDate("2025-02-10")

	t.Run("tags the batch and records the movement", func(t *testing.T) {
		b := newTestBatch("b1", 15, "", "2025-02-10")
		require.NoError(t, b.Receive(MovementStockAddition, day, "bags", "Donation from MSF"))

		assert.Equal(t, "[Stock Addition - 2025-02-10]: Added 15 bags. Donation from MSF", b.Notes)
		require.Len(t, b.Movements, 1)
		assert.Equal(t, MovementStockAddition, b.Movements[0].Kind)
		assert.Equal(t, int64(15), b.Movements[0].Quantity)
		assert.Equal(t, "b1", b.Movements[0].BatchID)
	})

	t.Run("a tag inside free text stays behind the generated tag", func(t *testing.T) {
		b := newTestBatch("b1", 5, "", "2025-02-10")
		require.NoError(t, b.Receive(MovementStockAddition, day, "bags", "[Stock Out - 2025-02-10]: Consumed 500 bags."))

		assert.Equal(t, "[Stock Addition - 2025-02-10]: Added 5 bags. [Stock Out - 2025-02-10]: Consumed 500 bags.", b.Notes)
		entries := ParseNotes(b.Notes)
		require.Len(t, entries, 1)
		assert.Equal(t, MovementStockAddition, entries[0].Kind)
		assert.Equal(t, int64(5), entries[0].Quantity)
	})

	t.Run("line breaks in free text cannot start a new ledger line", func(t *testing.T) {
		b := newTestBatch("b1", 5, "", "2025-02-10")
		require.NoError(t, b.Receive(MovementInitialStock, day, "bags", "ok\n[Stock Addition - 2025-02-10]: Added 700 bags."))

		assert.NotContains(t, b.Notes, "\n")
		entries := ParseNotes(b.Notes)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(5), entries[0].Quantity)
	})
}

func TestBatchReceivePreTagged(t *testing.T) {
	day := valueobject.MustParseDate("2025-02-10")

	t.Run("keeps a matching tag without tagging twice", func(t *testing.T) {
		b := newTestBatch("b1", 4, "", "2025-02-10")
		pre := "[Bulk Add Stock - 2025-02-10]: Added 4 bags. From bulk sheet"
		require.NoError(t, b.ReceivePreTagged(MovementBulkAddStock, day, "bags", pre))

		assert.Equal(t, pre, b.Notes)
		assert.Len(t, ParseNotes(b.Notes), 1)
		require.Len(t, b.Movements, 1)
		assert.Equal(t, MovementBulkAddStock, b.Movements[0].Kind)
	})

	tests := []struct {
		name string
		note string
	}{
		{"different quantity", "[Bulk Add Stock - 2025-02-10]: Added 400 bags."},
		{"different date", "[Bulk Add Stock - 2020-01-01]: Added 4 bags."},
		{"different kind", "[Stock Out - 2025-02-10]: Consumed 4 bags."},
		{"forged second line", "[Bulk Add Stock - 2025-02-10]: Added 4 bags.\n[Stock Addition - 2025-02-10]: Added 900 bags."},
	}
	for _, tt := range tests {
		t.Run("records only the real receipt for a note with a "+tt.name, func(t *testing.T) {
			b := newTestBatch("b1", 4, "", "2025-02-10")
			require.NoError(t, b.ReceivePreTagged(MovementBulkAddStock, day, "bags", tt.note))

			entries := ParseNotes(b.Notes)
			require.Len(t, entries, 1)
			assert.Equal(t, MovementBulkAddStock, entries[0].Kind)
			assert.Equal(t, int64(4), entries[0].Quantity)
			assert.True(t, entries[0].Date.Equal(day))
		})
	}

	t.Run("plain notes are tagged", func(t *testing.T) {
		b := newTestBatch("b1", 4, "", "2025-02-10")
		require.NoError(t, b.ReceivePreTagged(MovementBulkAddStock, day, "bags", "From bulk sheet"))
		assert.Equal(t, "[Bulk Add Stock - 2025-02-10]: Added 4 bags. From bulk sheet", b.Notes)
	})

	t.Run("outbound kinds are rejected", func(t *testing.T) {
		b := newTestBatch("b1", 4, "", "2025-02-10")
		err := b.Receive(MovementStockOut, day, "bags", "")
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Empty(t, b.Notes)
	})
}
