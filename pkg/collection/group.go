package collection

// GroupBy folds items into buckets keyed by key, keeping first-seen key order
// and input order within each bucket.
func GroupBy[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	order := make([]K, 0)
	groups := make(map[K][]T)
	for _, it := range items {
		k := key(it)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}
	return order, groups
}
