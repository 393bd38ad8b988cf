// Package ledger appends reported prices to a catalog item's listings.
// A listing is located by exact (name, location) match; when none exists a new
// listing is created. Quotes are append-only — the latest quote is the
// listing's current price and earlier quotes are immutable history.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grocerybuddies/price-engine/internal/model"
)

// SubmitPrice records a new price quote on item for the store identified by
// (storeName, loc). It returns true when a new listing had to be created.
//
// No price validation happens here; the document validator run at save time
// owns that. The caller persists item afterwards — SubmitPrice itself does
// not commit anything.
func SubmitPrice(item *model.CatalogItem, storeName string, loc model.Location, user string, price decimal.Decimal, now time.Time) bool {
	quote := model.PriceQuote{
		ID:        uuid.New().String(),
		User:      user,
		Price:     price,
		Upvotes:   []string{},
		Downvotes: []string{},
		Date:      now,
	}

	if listing := item.FindListing(storeName, loc); listing != nil {
		listing.Quotes = append(listing.Quotes, quote)
		return false
	}

	item.Stores = append(item.Stores, model.StoreListing{
		Name:     storeName,
		Location: loc,
		Quotes:   []model.PriceQuote{quote},
	})
	return true
}
