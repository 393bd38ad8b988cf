package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrValidation is the base error for document schema violations. Every store
// implementation runs Validate before committing a save; the wrapped message
// is surfaced to the client verbatim.
var ErrValidation = errors.New("item validation failed")

// Validate checks the document-level schema invariants:
// non-empty UPC, non-empty listing names, unique (name, location) listing
// identities, at least one quote per listing, non-negative prices, and
// disjoint vote sets.
func (item *CatalogItem) Validate() error {
	if item.UPC == "" {
		return fmt.Errorf("%w: upc must not be empty", ErrValidation)
	}
	for i := range item.Stores {
		s := &item.Stores[i]
		if s.Name == "" {
			return fmt.Errorf("%w: store name must not be empty", ErrValidation)
		}
		for j := 0; j < i; j++ {
			prev := &item.Stores[j]
			if prev.Name == s.Name && prev.Location.Equal(s.Location) {
				return fmt.Errorf("%w: duplicate listing for store %q at (%s, %s)",
					ErrValidation, s.Name, s.Location.Lat, s.Location.Long)
			}
		}
		if len(s.Quotes) == 0 {
			return fmt.Errorf("%w: listing for store %q has no prices", ErrValidation, s.Name)
		}
		for k := range s.Quotes {
			if err := validateQuote(&s.Quotes[k], s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateQuote(q *PriceQuote, storeName string) error {
	if q.Price.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: negative price %s at store %q", ErrValidation, q.Price, storeName)
	}
	down := make(map[string]struct{}, len(q.Downvotes))
	for _, u := range q.Downvotes {
		down[u] = struct{}{}
	}
	for _, u := range q.Upvotes {
		if _, ok := down[u]; ok {
			return fmt.Errorf("%w: user %q appears in both upvotes and downvotes", ErrValidation, u)
		}
	}
	return nil
}
