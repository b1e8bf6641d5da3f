// Package reconcile merges newly normalized events into the persisted set.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/Tiliavir/nt-hours/internal/model"
)

// Result is the merged event set and whether it differs from what was
// persisted.
type Result struct {
	Events  []model.Event
	Added   int
	Changed bool
}

// Reconcile merges incoming into persisted. exists is false on the first run,
// when no persisted set is available yet.
//
// Events are deduplicated on Timestamp keeping the first occurrence, with
// persisted rows ahead of incoming rows, so a persisted event is never
// replaced by a later record at the same instant. The result is sorted by
// Timestamp. Changed reports whether incoming contributed at least one new
// timestamp.
func Reconcile(persisted []model.Event, exists bool, incoming []model.Event) (Result, error) {
	seen := make(map[int64]struct{}, len(persisted)+len(incoming))
	merged := make([]model.Event, 0, len(persisted)+len(incoming))

	if exists {
		for i, e := range persisted {
			if e.Timestamp.IsZero() {
				return Result{}, &model.MergeInconsistency{
					Reason: fmt.Sprintf("persisted row %d has no timestamp", i+1),
				}
			}
			if add(seen, e) {
				merged = append(merged, e)
			}
		}
	}

	added := 0
	for _, e := range incoming {
		if add(seen, e) {
			merged = append(merged, e)
			added++
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return Result{Events: merged, Added: added, Changed: added > 0}, nil
}

func add(seen map[int64]struct{}, e model.Event) bool {
	k := e.Timestamp.UnixNano()
	if _, dup := seen[k]; dup {
		return false
	}
	seen[k] = struct{}{}
	return true
}
