package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared"
)

const (
	itemsKey  = "inventory_items"
	seededKey = "inventory_seeded"
)

// ItemCollectionRepository keeps the whole item collection as one JSON document
// in a key-value store, next to the seeded sentinel.
type ItemCollectionRepository struct {
	store     shared.KeyValueStore
	keyPrefix string
	// serializes each load-modify-write of the document within this process
	mu *sync.Mutex
}

// NewItemCollectionRepository creates a repository over store. keyPrefix namespaces both keys.
func NewItemCollectionRepository(store shared.KeyValueStore, keyPrefix string) *ItemCollectionRepository {
	return &ItemCollectionRepository{
		store:     store,
		keyPrefix: keyPrefix,
		mu:        &sync.Mutex{},
	}
}

func (r *ItemCollectionRepository) key(name string) string {
	return r.keyPrefix + name
}

func (r *ItemCollectionRepository) load(ctx context.Context) ([]*inventory.Item, error) {
	raw, err := r.store.Get(ctx, r.key(itemsKey))
	if errors.Is(err, shared.ErrKeyNotFound) {
		return []*inventory.Item{}, nil
	}
	if err != nil {
		return nil, shared.NewStorageError(err)
	}

	var items []*inventory.Item
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, shared.NewStorageError(fmt.Errorf("failed to decode item collection: %w", err))
		}
	}
	if items == nil {
		items = []*inventory.Item{}
	}
	return items, nil
}

func (r *ItemCollectionRepository) write(ctx context.Context, items []*inventory.Item) error {
	if items == nil {
		items = []*inventory.Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return shared.NewStorageError(fmt.Errorf("failed to encode item collection: %w", err))
	}
	if err := r.store.Set(ctx, r.key(itemsKey), raw); err != nil {
		return shared.NewStorageError(err)
	}
	return nil
}

// FindAll returns every item in stored order
func (r *ItemCollectionRepository) FindAll(ctx context.Context) ([]*inventory.Item, error) {
	return r.load(ctx)
}

// FindByID returns the item with id
func (r *ItemCollectionRepository) FindByID(ctx context.Context, id string) (*inventory.Item, error) {
	items, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(items, id); i >= 0 {
		return items[i], nil
	}
	return nil, shared.NewNotFoundError("item %s not found", id)
}

// Save replaces the stored item with the same id, or appends it
func (r *ItemCollectionRepository) Save(ctx context.Context, item *inventory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load(ctx)
	if err != nil {
		return err
	}
	if i := indexOf(items, item.ID); i >= 0 {
		items[i] = item
	} else {
		items = append(items, item)
	}
	return r.write(ctx, items)
}

// SaveAll replaces the whole collection
func (r *ItemCollectionRepository) SaveAll(ctx context.Context, items []*inventory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(ctx, items)
}

// Delete removes the item and its batches
func (r *ItemCollectionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(items, id)
	if i < 0 {
		return shared.NewNotFoundError("item %s not found", id)
	}
	items = append(items[:i], items[i+1:]...)
	return r.write(ctx, items)
}

// IsSeeded reports whether the seed catalogue was loaded before
func (r *ItemCollectionRepository) IsSeeded(ctx context.Context) (bool, error) {
	raw, err := r.store.Get(ctx, r.key(seededKey))
	if errors.Is(err, shared.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, shared.NewStorageError(err)
	}
	return string(raw) == "true", nil
}

// MarkSeeded sets the seeded sentinel
func (r *ItemCollectionRepository) MarkSeeded(ctx context.Context) error {
	if err := r.store.Set(ctx, r.key(seededKey), []byte("true")); err != nil {
		return shared.NewStorageError(err)
	}
	return nil
}

func indexOf(items []*inventory.Item, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

var _ inventory.ItemRepository = (*ItemCollectionRepository)(nil)
