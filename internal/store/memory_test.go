package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/grocerybuddies/price-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func testItem(upc, name string) *model.CatalogItem {
	return &model.CatalogItem{
		UPC:  upc,
		Name: name,
		Stores: []model.StoreListing{{
			Name:     "StoreX",
			Location: model.Location{Lat: d(30.28), Long: d(-97.73)},
			Quotes: []model.PriceQuote{{
				ID: "q0", User: "alice", Price: d(3.50),
				Upvotes: []string{}, Downvotes: []string{},
			}},
		}},
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	item := testItem("111", "Milk")
	if err := ms.CreateItem(ctx, item); err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Version != 1 {
		t.Errorf("create should set version 1, got %d", item.Version)
	}

	got, err := ms.GetItem(ctx, "111")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Milk" || len(got.Stores) != 1 {
		t.Errorf("unexpected item: %+v", got)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	ms := NewMemoryStore()
	if _, err := ms.GetItem(context.Background(), "nope"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateItem(ctx, testItem("111", "Milk"))
	if err := ms.CreateItem(ctx, testItem("111", "Milk")); !errors.Is(err, ErrItemExists) {
		t.Errorf("expected ErrItemExists, got %v", err)
	}
}

func TestMemoryStore_SaveBumpsVersion(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	item := testItem("111", "Milk")
	ms.CreateItem(ctx, item)

	loaded, _ := ms.GetItem(ctx, "111")
	loaded.Name = "Whole Milk"
	if err := ms.SaveItem(ctx, loaded); err != nil {
		t.Fatalf("save: %v", err)
	}
	if loaded.Version != 2 {
		t.Errorf("save should bump version to 2, got %d", loaded.Version)
	}
}

func TestMemoryStore_SaveStaleVersionConflicts(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateItem(ctx, testItem("111", "Milk"))

	first, _ := ms.GetItem(ctx, "111")
	second, _ := ms.GetItem(ctx, "111")

	if err := ms.SaveItem(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := ms.SaveItem(ctx, second); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict for stale save, got %v", err)
	}
}

func TestMemoryStore_SaveMissing(t *testing.T) {
	ms := NewMemoryStore()
	item := testItem("111", "Milk")
	item.Version = 1
	if err := ms.SaveItem(context.Background(), item); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveRejectsInvalidDocument(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateItem(ctx, testItem("111", "Milk"))
	loaded, _ := ms.GetItem(ctx, "111")
	loaded.Stores[0].Quotes[0].Price = d(-1.00)

	err := ms.SaveItem(ctx, loaded)
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	// The stored document is untouched.
	got, _ := ms.GetItem(ctx, "111")
	if got.Stores[0].Quotes[0].Price.LessThan(decimal.Zero) {
		t.Error("invalid save must not be committed")
	}
}

func TestMemoryStore_CopiesAreIsolated(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateItem(ctx, testItem("111", "Milk"))
	got, _ := ms.GetItem(ctx, "111")
	got.Stores[0].Quotes[0].Upvotes = append(got.Stores[0].Quotes[0].Upvotes, "mallory")

	fresh, _ := ms.GetItem(ctx, "111")
	if len(fresh.Stores[0].Quotes[0].Upvotes) != 0 {
		t.Error("mutating a loaded copy leaked into the store")
	}
}

func TestMemoryStore_Search(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateItem(ctx, testItem("222", "Peanut Butter"))
	ms.CreateItem(ctx, testItem("111", "Creamy Peanut Butter"))
	ms.CreateItem(ctx, testItem("333", "Milk"))

	items, err := ms.SearchItems(ctx, "peanut")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(items))
	}
	// Ordered by UPC.
	if items[0].UPC != "111" || items[1].UPC != "222" {
		t.Errorf("unexpected order: %s, %s", items[0].UPC, items[1].UPC)
	}
}
