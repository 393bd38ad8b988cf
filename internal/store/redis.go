package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grocerybuddies/price-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for item documents. Writes go to the primary and invalidate the
// cached document; reads check Redis first then fall back to the primary.
//
// A cached document can be up to one TTL stale. That is safe for the
// optimizer (read-only), and mutation paths recover through the optimistic
// concurrency retry: a save against a stale version fails, the competing
// writer has already invalidated the key, and the reload repopulates from
// the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) GetItem(ctx context.Context, upc string) (*model.CatalogItem, error) {
	data, err := s.rdb.Get(ctx, itemKey(upc)).Bytes()
	if err == nil {
		var item model.CatalogItem
		if json.Unmarshal(data, &item) == nil {
			return &item, nil
		}
	}

	item, err := s.primary.GetItem(ctx, upc)
	if err != nil {
		return nil, err
	}
	s.cacheItem(ctx, item)
	return item, nil
}

func (s *CachedStore) CreateItem(ctx context.Context, item *model.CatalogItem) error {
	if err := s.primary.CreateItem(ctx, item); err != nil {
		return err
	}
	s.cacheItem(ctx, item)
	return nil
}

func (s *CachedStore) SaveItem(ctx context.Context, item *model.CatalogItem) error {
	if err := s.primary.SaveItem(ctx, item); err != nil {
		// A conflicting writer holds the truth now; drop our stale copy.
		s.rdb.Del(ctx, itemKey(item.UPC))
		return err
	}
	s.cacheItem(ctx, item)
	return nil
}

// SearchItems is not cached: keyword queries are unbounded and rare compared
// to item lookups.
func (s *CachedStore) SearchItems(ctx context.Context, keyword string) ([]model.CatalogItem, error) {
	return s.primary.SearchItems(ctx, keyword)
}

func (s *CachedStore) cacheItem(ctx context.Context, item *model.CatalogItem) {
	if data, err := json.Marshal(item); err == nil {
		s.rdb.Set(ctx, itemKey(item.UPC), data, s.ttl)
	}
}

func itemKey(upc string) string { return fmt.Sprintf("item:%s", upc) }
