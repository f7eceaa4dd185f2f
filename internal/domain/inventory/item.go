package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Category classifies a supply item
type Category string

const (
	CategoryMedication Category = "medication"
	CategoryConsumable Category = "consumable"
	CategoryEquipment  Category = "equipment"
	CategoryPPE        Category = "ppe"
	CategoryLaboratory Category = "laboratory"
	CategoryOther      Category = "other"
)

// AllCategories returns every valid category
func AllCategories() []Category {
	return []Category{
		CategoryMedication,
		CategoryConsumable,
		CategoryEquipment,
		CategoryPPE,
		CategoryLaboratory,
		CategoryOther,
	}
}

// IsValid checks if the category is one of the known values
func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory parses a category case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", shared.NewValidationError("unknown category %q", s)
	}
	return c, nil
}

// Item is a supply tracked as a set of dated batches.
// Its stock is always the sum of its batch quantities; there is no stored total.
type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      Category        `json:"category"`
	Unit          string          `json:"unit"`
	MinThreshold  decimal.Decimal `json:"min_threshold"`
	Batches       []*Batch        `json:"batches"`
	LastUpdated   time.Time       `json:"last_updated"`
	Notes         string          `json:"notes,omitempty"`
	OriginCountry string          `json:"origin_country,omitempty"`
}

// Definition holds the identity-independent fields of an item
type Definition struct {
	Name          string
	Category      Category
	Unit          string
	MinThreshold  decimal.Decimal
	Notes         string
	OriginCountry string
}

// Validate checks the required fields of a definition
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return shared.NewValidationError("item name is required")
	}
	if !d.Category.IsValid() {
		return shared.NewValidationError("unknown category %q", d.Category)
	}
	if strings.TrimSpace(d.Unit) == "" {
		return shared.NewValidationError("unit is required")
	}
	if d.MinThreshold.IsNegative() {
		return shared.NewValidationError("minimum threshold cannot be negative")
	}
	return nil
}

// NewItem creates an item holding exactly one initial batch.
func NewItem(def Definition, initial *Batch, at time.Time) (*Item, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if initial == nil {
		return nil, shared.NewValidationError("an item must be created with an initial batch")
	}
	item := &Item{
		ID:      uuid.NewString(),
		Batches: []*Batch{initial},
	}
	item.apply(def)
	item.Touch(at)
	return item, nil
}

func (i *Item) apply(def Definition) {
	i.Name = strings.TrimSpace(def.Name)
	i.Category = def.Category
	i.Unit = strings.TrimSpace(def.Unit)
	i.MinThreshold = def.MinThreshold
	i.Notes = def.Notes
	i.OriginCountry = strings.TrimSpace(def.OriginCountry)
}

// Redefine replaces the item definition. Batches are left untouched.
func (i *Item) Redefine(def Definition, at time.Time) error {
	if err := def.Validate(); err != nil {
		return err
	}
	i.apply(def)
	i.Touch(at)
	return nil
}

// Definition returns the current definition of the item
func (i *Item) Definition() Definition {
	return Definition{
		Name:          i.Name,
		Category:      i.Category,
		Unit:          i.Unit,
		MinThreshold:  i.MinThreshold,
		Notes:         i.Notes,
		OriginCountry: i.OriginCountry,
	}
}

// Touch refreshes LastUpdated
func (i *Item) Touch(at time.Time) {
	i.LastUpdated = at
}

// TotalQuantity returns the sum of all batch quantities. An item without batches holds 0.
func (i *Item) TotalQuantity() int64 {
	var total int64
	for _, b := range i.Batches {
		total += b.Quantity
	}
	return total
}

// SoonestExpiry returns the earliest expiry among batches that still hold stock
// and have not expired as of today. Today itself counts as not expired.
func (i *Item) SoonestExpiry(today valueobject.Date) *valueobject.Date {
	var soonest *valueobject.Date
	for _, b := range i.Batches {
		if b.Quantity <= 0 || b.ExpiryDate == nil || b.ExpiryDate.Before(today) {
			continue
		}
		if soonest == nil || b.ExpiryDate.Before(*soonest) {
			d := *b.ExpiryDate
			soonest = &d
		}
	}
	return soonest
}

// IsBelowThreshold reports whether total stock has fallen under the reorder threshold.
func (i *Item) IsBelowThreshold() bool {
	return decimal.NewFromInt(i.TotalQuantity()).LessThan(i.MinThreshold)
}

// FindBatch returns the batch with the given id, or nil
func (i *Item) FindBatch(id string) *Batch {
	for _, b := range i.Batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AddBatch appends a new batch and refreshes LastUpdated
func (i *Item) AddBatch(b *Batch, at time.Time) error {
	if b == nil {
		return shared.NewValidationError("batch is required")
	}
	if b.Quantity <= 0 {
		return shared.NewInvalidQuantityError("quantity added must be greater than zero, got %d", b.Quantity)
	}
	if i.FindBatch(b.ID) != nil {
		return shared.NewValidationError("batch %s already exists on item %s", b.ID, i.ID)
	}
	i.Batches = append(i.Batches, b)
	i.Touch(at)
	return nil
}

// ItemFilter selects items in listings. Zero fields match everything.
type ItemFilter struct {
	Category       Category
	Search         string
	BelowThreshold bool
}

// Matches reports whether the item satisfies the filter
func (f ItemFilter) Matches(i *Item) bool {
	if f.Category != "" && i.Category != f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(i.Name), strings.ToLower(strings.TrimSpace(f.Search))) {
		return false
	}
	if f.BelowThreshold && !i.IsBelowThreshold() {
		return false
	}
	return true
}
