// Package model defines the core domain types shared across the price engine.
// All prices use shopspring/decimal — never float64 for money. Coordinates are
// decimal too: a listing's location is an opaque equality-compared key, and
// float comparison would make "same store" depend on representation noise.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location identifies where a store sits. It is compared for exact equality,
// never used for distance math.
type Location struct {
	Lat  decimal.Decimal `json:"lat"`
	Long decimal.Decimal `json:"long"`
}

// Equal reports whether two locations are the same point.
func (l Location) Equal(o Location) bool {
	return l.Lat.Equal(o.Lat) && l.Long.Equal(o.Long)
}

// PriceQuote is one reported price event for a listing. Quotes are append-only:
// once a newer quote exists, earlier ones are immutable history and no longer
// accept votes.
type PriceQuote struct {
	ID        string          `json:"id"`
	User      string          `json:"user"`
	Price     decimal.Decimal `json:"price"`
	Upvotes   []string        `json:"upvotes"`
	Downvotes []string        `json:"downvotes"`
	Date      time.Time       `json:"date"`
}

// StoreListing is one store's presence for an item, identified by
// (Name, Location). At most one listing per item carries a given identity.
type StoreListing struct {
	Name     string       `json:"name"`
	Location Location     `json:"location"`
	Quotes   []PriceQuote `json:"prices"`
}

// LatestQuote returns the listing's current price quote, or nil if the
// listing has no quotes.
func (s *StoreListing) LatestQuote() *PriceQuote {
	if len(s.Quotes) == 0 {
		return nil
	}
	return &s.Quotes[len(s.Quotes)-1]
}

// CatalogItem is one product in the catalog, keyed by UPC. It exclusively owns
// its listings and, transitively, their quotes.
//
// Version supports optimistic concurrency: stores reject a save whose Version
// does not match the persisted document, so two concurrent read-modify-write
// cycles against the same item cannot silently lose the first write.
type CatalogItem struct {
	UPC     string         `json:"upc"`
	Name    string         `json:"name"`
	Stores  []StoreListing `json:"stores"`
	Version int64          `json:"version"`
}

// FindListing returns the listing matching (name, location) exactly, or nil.
func (item *CatalogItem) FindListing(name string, loc Location) *StoreListing {
	for i := range item.Stores {
		s := &item.Stores[i]
		if s.Name == name && s.Location.Equal(loc) {
			return s
		}
	}
	return nil
}
