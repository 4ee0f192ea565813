// Package diff classifies an incoming marker collection against the set of
// marker ids already known to the store. Classification is by id only;
// whether a retained marker actually moved is decided later against the
// store's target position.
package diff

import "github.com/mapmotion/mapmotion/pkg/core"

// Result partitions an incoming collection relative to the previous id set.
type Result struct {
	// Added holds snapshots whose id was not present before.
	Added []core.MarkerSnapshot
	// Removed holds ids that were present before but are absent now.
	Removed []string
	// Retained holds snapshots whose id survives the update.
	Retained []core.MarkerSnapshot
}

// Compute diffs the previous id set against the next collection in
// O(len(prev)+len(next)) using map lookups.
//
// Duplicate ids within next are collapsed deterministically: the last
// occurrence wins and earlier occurrences are discarded outright, never
// merged.
func Compute(prev map[string]struct{}, next []core.MarkerSnapshot) Result {
	latest := make(map[string]core.MarkerSnapshot, len(next))
	order := make([]string, 0, len(next))
	for _, m := range next {
		if _, seen := latest[m.ID]; !seen {
			order = append(order, m.ID)
		}
		latest[m.ID] = m
	}

	var res Result
	for _, id := range order {
		m := latest[id]
		if _, ok := prev[id]; ok {
			res.Retained = append(res.Retained, m)
		} else {
			res.Added = append(res.Added, m)
		}
	}
	for id := range prev {
		if _, ok := latest[id]; !ok {
			res.Removed = append(res.Removed, id)
		}
	}
	return res
}
