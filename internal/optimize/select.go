package optimize

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/grocerybuddies/price-engine/internal/model"
)

// ErrNoCoveringStore is returned by SelectSingleStore when no store carries
// any of the requested items.
var ErrNoCoveringStore = errors.New("optimize: no store carries any of the requested items")

// Allocation assigns a set of basket items to one store, with the total price
// of that subset.
type Allocation struct {
	Key   model.StoreKey
	UPCs  []string
	Total decimal.Decimal
}

// SelectSingleStore finds the one store that best serves the basket:
// maximum coverage (distinct UPCs supplied), ties broken by lowest total
// price, then by smallest store key. Candidates are walked in key order so
// every tie-break is a pure function of the data.
//
// The winner's UPC set may be a strict subset of the basket when no single
// store covers everything.
func SelectSingleStore(basket Basket) (Allocation, error) {
	type candidate struct {
		upcs  []string
		total decimal.Decimal
	}

	byStore := make(map[model.StoreKey]*candidate)
	for upc, prices := range basket {
		for _, sp := range prices {
			c, ok := byStore[sp.Key]
			if !ok {
				c = &candidate{total: decimal.Zero}
				byStore[sp.Key] = c
			}
			c.upcs = append(c.upcs, upc)
			c.total = c.total.Add(sp.Price)
		}
	}
	if len(byStore) == 0 {
		return Allocation{}, ErrNoCoveringStore
	}

	keys := make([]model.StoreKey, 0, len(byStore))
	for k := range byStore {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var best Allocation
	for i, k := range keys {
		c := byStore[k]
		better := i == 0 ||
			len(c.upcs) > len(best.UPCs) ||
			(len(c.upcs) == len(best.UPCs) && c.total.LessThan(best.Total))
		if better {
			best = Allocation{Key: k, UPCs: c.upcs, Total: c.total}
		}
	}

	sort.Strings(best.UPCs)
	return best, nil
}

// SelectPerItem minimizes total spend by picking, for each UPC independently,
// the cheapest supplying store (ties broken by smallest store key), then
// grouping the assignments per store. Every UPC present in the basket appears
// in exactly one of the returned allocations. Allocations come back sorted by
// store key.
func SelectPerItem(basket Basket) []Allocation {
	chosen := make(map[model.StoreKey]*Allocation)
	for upc, prices := range basket {
		if len(prices) == 0 {
			continue
		}
		best := prices[0]
		for _, sp := range prices[1:] {
			if sp.Price.LessThan(best.Price) ||
				(sp.Price.Equal(best.Price) && sp.Key.Less(best.Key)) {
				best = sp
			}
		}
		a, ok := chosen[best.Key]
		if !ok {
			a = &Allocation{Key: best.Key, Total: decimal.Zero}
			chosen[best.Key] = a
		}
		a.UPCs = append(a.UPCs, upc)
		a.Total = a.Total.Add(best.Price)
	}

	allocations := make([]Allocation, 0, len(chosen))
	for _, a := range chosen {
		sort.Strings(a.UPCs)
		allocations = append(allocations, *a)
	}
	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].Key.Less(allocations[j].Key)
	})
	return allocations
}
