package model

// StoreKey is the canonical identity of a physical store: the (name, location)
// pair with coordinates in canonical decimal form. It is a structured composite
// key rather than a delimited string, so a store name containing a delimiter
// cannot collide with another store. The same physical store maps to the same
// key no matter which item's listing produced it.
type StoreKey struct {
	Name string `json:"name"`
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

// KeyOf derives the StoreKey for a listing.
func KeyOf(s *StoreListing) StoreKey {
	return StoreKey{
		Name: s.Name,
		Lat:  s.Location.Lat.String(),
		Long: s.Location.Long.String(),
	}
}

// Compare imposes a total order on store keys: lexicographic on
// (Name, Lat, Long). Selection tie-breaks use this order so that results are
// a pure function of the data, never of map iteration order.
func (k StoreKey) Compare(o StoreKey) int {
	if k.Name != o.Name {
		if k.Name < o.Name {
			return -1
		}
		return 1
	}
	if k.Lat != o.Lat {
		if k.Lat < o.Lat {
			return -1
		}
		return 1
	}
	switch {
	case k.Long < o.Long:
		return -1
	case k.Long > o.Long:
		return 1
	}
	return 0
}

// Less reports whether k orders before o.
func (k StoreKey) Less(o StoreKey) bool { return k.Compare(o) < 0 }
