// Package collection defines the fixed set of collection names the server
// persists and validates incoming save/load requests against it.
package collection

import "slices"

// Name identifies a collection, or the All selector.
type Name string

const (
	Users    Name = "users"
	Games    Name = "games"
	Products Name = "products"
	Servers  Name = "servers"

	// All selects every real collection. It is never a storage target.
	All Name = "all"
)

// Real lists the storage-backed collections in their stable order.
var Real = []Name{Users, Games, Products, Servers}

// Valid reports whether name is a real collection or All.
func Valid(name string) bool {
	if Name(name) == All {
		return true
	}
	return IsReal(Name(name))
}

// IsReal reports whether n is backed by storage.
func IsReal(n Name) bool {
	return slices.Contains(Real, n)
}

// Targets returns the collections a request for n touches.
func Targets(n Name) []Name {
	if n == All {
		out := make([]Name, len(Real))
		copy(out, Real)
		return out
	}
	return []Name{n}
}

func (n Name) String() string { return string(n) }
