// Package optimize computes the cheapest way to buy a basket of items:
// either the one store that best covers the basket, or a per-item
// cheapest-store split. All functions are pure — they operate on already
// loaded catalog items and never touch storage.
package optimize

import (
	"github.com/shopspring/decimal"

	"github.com/grocerybuddies/price-engine/internal/model"
)

// StorePrice pairs a store identity with its current price for some item.
type StorePrice struct {
	Key   model.StoreKey
	Price decimal.Decimal
}

// Basket maps each requested UPC to the stores carrying it and their latest
// prices. UPCs that resolved to no catalog entry are simply absent; the
// caller tracks those separately for the partial-success advisory.
type Basket map[string][]StorePrice

// ListingPrices extracts one (store key, latest price) pair per listing of
// item. Historical quotes are irrelevant to optimization. Listings without
// quotes are skipped — they cannot price anything.
func ListingPrices(item *model.CatalogItem) []StorePrice {
	prices := make([]StorePrice, 0, len(item.Stores))
	for i := range item.Stores {
		s := &item.Stores[i]
		latest := s.LatestQuote()
		if latest == nil {
			continue
		}
		prices = append(prices, StorePrice{Key: model.KeyOf(s), Price: latest.Price})
	}
	return prices
}
