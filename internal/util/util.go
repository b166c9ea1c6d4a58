// Package util holds small generic helpers shared by the grammar compiler and
// the server.
package util

import (
	"sort"
)

// OrderedKeys returns the keys of m, ordered a particular way. The order is
// guaranteed to be the same on every run.
//
// As of this writing, the order is alphabetical, but this function does not
// guarantee this will always be the case.
func OrderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortBy returns a sorted copy of items using the given less function.
func SortBy[E any](items []E, lt func(l, r E) bool) []E {
	src := make([]E, len(items))
	copy(src, items)
	sort.Slice(src, func(i, j int) bool {
		return lt(src[i], src[j])
	})
	return src
}
