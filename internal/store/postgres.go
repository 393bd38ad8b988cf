package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grocerybuddies/price-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Each catalog item is one JSONB document keyed by UPC, with a separate
// version column for optimistic concurrency. Saves compare-and-swap on the
// version so a concurrent writer can never be silently overwritten.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the catalog table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS catalog_items (
			upc     TEXT PRIMARY KEY,
			doc     JSONB NOT NULL,
			version BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, upc string) (*model.CatalogItem, error) {
	var doc []byte
	var version int64

	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM catalog_items WHERE upc = $1`, upc).
		Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", upc, err)
	}

	var item model.CatalogItem
	if err := json.Unmarshal(doc, &item); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", upc, err)
	}
	item.Version = version
	return &item, nil
}

func (s *PostgresStore) CreateItem(ctx context.Context, item *model.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	item.Version = 1
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", item.UPC, err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO catalog_items (upc, doc, version)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (upc) DO NOTHING`,
		item.UPC, doc, item.Version)
	if err != nil {
		return fmt.Errorf("create item %s: %w", item.UPC, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemExists
	}
	return nil
}

func (s *PostgresStore) SaveItem(ctx context.Context, item *model.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	loadedVersion := item.Version
	item.Version = loadedVersion + 1
	doc, err := json.Marshal(item)
	if err != nil {
		item.Version = loadedVersion
		return fmt.Errorf("encode item %s: %w", item.UPC, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE catalog_items
		 SET doc = $2, version = $3
		 WHERE upc = $1 AND version = $4`,
		item.UPC, doc, item.Version, loadedVersion)
	if err != nil {
		item.Version = loadedVersion
		return fmt.Errorf("save item %s: %w", item.UPC, err)
	}
	if tag.RowsAffected() == 0 {
		item.Version = loadedVersion
		// Distinguish a stale version from a missing row.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM catalog_items WHERE upc = $1)`,
			item.UPC).Scan(&exists); err != nil {
			return fmt.Errorf("save item %s: %w", item.UPC, err)
		}
		if !exists {
			return ErrItemNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// likeEscaper quotes ILIKE metacharacters so keywords match literally, the
// same substring semantics the memory store has.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

func (s *PostgresStore) SearchItems(ctx context.Context, keyword string) ([]model.CatalogItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc, version FROM catalog_items
		 WHERE doc->>'name' ILIKE '%' || $1 || '%'
		 ORDER BY upc`, escapeLike(keyword))
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		var doc []byte
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, err
		}
		var item model.CatalogItem
		if err := json.Unmarshal(doc, &item); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		item.Version = version
		items = append(items, item)
	}
	return items, rows.Err()
}
