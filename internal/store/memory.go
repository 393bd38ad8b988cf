package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/grocerybuddies/price-engine/internal/model"
)

// MemoryStore implements Store with an in-memory map. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*model.CatalogItem
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*model.CatalogItem)}
}

func (s *MemoryStore) GetItem(_ context.Context, upc string) (*model.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[upc]
	if !ok {
		return nil, ErrItemNotFound
	}
	return cloneItem(item), nil
}

func (s *MemoryStore) CreateItem(_ context.Context, item *model.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.UPC]; ok {
		return ErrItemExists
	}
	item.Version = 1
	s.items[item.UPC] = cloneItem(item)
	return nil
}

func (s *MemoryStore) SaveItem(_ context.Context, item *model.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.UPC]
	if !ok {
		return ErrItemNotFound
	}
	if existing.Version != item.Version {
		return ErrVersionConflict
	}
	item.Version++
	s.items[item.UPC] = cloneItem(item)
	return nil
}

func (s *MemoryStore) SearchItems(_ context.Context, keyword string) ([]model.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(keyword)
	var matches []model.CatalogItem
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			matches = append(matches, *cloneItem(item))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].UPC < matches[j].UPC })
	return matches, nil
}

// cloneItem deep-copies an item so callers never alias stored state.
func cloneItem(item *model.CatalogItem) *model.CatalogItem {
	out := *item
	out.Stores = make([]model.StoreListing, len(item.Stores))
	for i, s := range item.Stores {
		listing := s
		listing.Quotes = make([]model.PriceQuote, len(s.Quotes))
		for j, q := range s.Quotes {
			quote := q
			quote.Upvotes = append([]string{}, q.Upvotes...)
			quote.Downvotes = append([]string{}, q.Downvotes...)
			listing.Quotes[j] = quote
		}
		out.Stores[i] = listing
	}
	return &out
}
