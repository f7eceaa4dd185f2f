package inventory

import "context"

// ItemRepository persists the whole item collection.
// FindByID returns a NOT_FOUND DomainError for unknown ids; store failures come back as STORAGE_ERROR.
type ItemRepository interface {
	FindAll(ctx context.Context) ([]*Item, error)
	FindByID(ctx context.Context, id string) (*Item, error)
	// Save inserts or replaces one item within the collection
	Save(ctx context.Context, item *Item) error
	// SaveAll replaces the whole collection
	SaveAll(ctx context.Context, items []*Item) error
	Delete(ctx context.Context, id string) error

	IsSeeded(ctx context.Context) (bool, error)
	MarkSeeded(ctx context.Context) error
}
