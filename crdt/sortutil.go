package crdt

import "sort"

// sortByTsReplica orders items ascending by (timestamp, replica),
// the tie-break used throughout the CRDT zoo for deterministic
// observation order.
func sortByTsReplica[T any](items []T, key func(T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, ri := key(items[i])
		tj, rj := key(items[j])
		if ti != tj {
			return ti < tj
		}
		return ri < rj
	})
}
