// Package store defines catalog persistence for the price engine.
// Implementations include PostgreSQL (source of truth, one JSONB document per
// item), Redis (read-through cache), and in-memory (for testing).
//
// Every implementation validates the document before committing a save and
// enforces optimistic concurrency: SaveItem only commits when the caller's
// Version matches the persisted one, returning ErrVersionConflict otherwise.
package store

import (
	"context"
	"errors"

	"github.com/grocerybuddies/price-engine/internal/model"
)

var (
	// ErrItemNotFound is returned when no catalog item carries the UPC.
	ErrItemNotFound = errors.New("store: item not found")

	// ErrItemExists is returned by CreateItem for an already registered UPC.
	ErrItemExists = errors.New("store: item already exists")

	// ErrVersionConflict is returned by SaveItem when the item changed since
	// it was loaded. Callers reload and re-apply their mutation.
	ErrVersionConflict = errors.New("store: item version conflict")
)

// Store is the catalog persistence interface.
type Store interface {
	// GetItem loads the full catalog item for a UPC.
	GetItem(ctx context.Context, upc string) (*model.CatalogItem, error)

	// CreateItem registers a new catalog item. On success the item's
	// Version is set to 1.
	CreateItem(ctx context.Context, item *model.CatalogItem) error

	// SaveItem persists a mutated item if item.Version still matches the
	// stored document, then bumps item.Version.
	SaveItem(ctx context.Context, item *model.CatalogItem) error

	// SearchItems returns items whose name contains keyword
	// (case-insensitive), ordered by UPC.
	SearchItems(ctx context.Context, keyword string) ([]model.CatalogItem, error)
}
