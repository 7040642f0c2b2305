package values

import "sort"

// SortBy returns a copy of items sorted with lt, which reports whether left
// comes before right. The sort is stable; items that are not less than each
// other keep their relative order.
//
// items will not be modified.
func SortBy[E any](items []E, lt func(left E, right E) bool) []E {
	if len(items) == 0 || lt == nil {
		return items
	}

	sorted := make([]E, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lt(sorted[i], sorted[j])
	})
	return sorted
}

// SortedKeys returns the keys of the map value m in the order given by
// Compare. It is used wherever map iteration must be deterministic.
func SortedKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return SortBy(keys, func(l, r K) bool {
		return Compare(l, r) < 0
	})
}
