package routing

import (
	"time"

	"ddarpd/internal/model"
)

// Hysteresis/expiry constants (spec.md §4.4).
const (
	ImprovementThreshold = 0.80 // fresh cost must be < 0.80 * existing to replace
	RefreshAfter         = 30 * time.Second
	ExpireAfter          = 120 * time.Second
)

// Table is the local routing table: a map from destination to its current
// RouteEntry, installed by successive Dijkstra passes under the hysteresis
// rules below. Not safe for concurrent mutation; T_route owns writes and
// swaps the table atomically for readers (spec.md §5).
type Table struct {
	entries map[model.NodeId]model.RouteEntry
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{entries: make(map[model.NodeId]model.RouteEntry)}
}

// Lookup returns the route to dest, if any.
func (t *Table) Lookup(dest model.NodeId) (model.RouteEntry, bool) {
	r, ok := t.entries[dest]
	return r, ok
}

// Entries returns a snapshot slice of all current routes.
func (t *Table) Entries() []model.RouteEntry {
	out := make([]model.RouteEntry, 0, len(t.entries))
	for _, r := range t.entries {
		out = append(out, r)
	}
	return out
}

// Install folds a fresh Dijkstra pass into the table per spec.md §4.4's
// hysteresis rules, returning a new Table (the atomic-swap unit T_route
// hands to readers) and the set of destinations whose RouteEntry changed
// (installed, replaced, refreshed, or evicted) — consumed by the path-decision sink.
func Install(prior *Table, fresh map[model.NodeId]Result, now time.Time) (*Table, []model.NodeId) {
	next := NewTable()
	var changed []model.NodeId

	for dest, existing := range prior.entries {
		freshResult, stillReachable := fresh[dest]

		switch {
		case !stillReachable:
			// Evicted: absent from the fresh result.
			changed = append(changed, dest)
			continue

		case !existing.Fresh(now, ExpireAfter):
			// Hard expiry wins over refresh: an entry past ExpireAfter is
			// evicted even when the fresh pass still reaches dest.
			changed = append(changed, dest)
			continue

		case freshResult.TotalCost < ImprovementThreshold*existing.TotalCost:
			next.entries[dest] = toRouteEntry(dest, freshResult, now)
			changed = append(changed, dest)

		case now.Sub(existing.ComputedTs) >= RefreshAfter:
			// Refresh freshness even if the path is unchanged.
			refreshed := existing
			refreshed.ComputedTs = now
			next.entries[dest] = refreshed
			changed = append(changed, dest)

		default:
			// Retained as-is.
			next.entries[dest] = existing
		}
	}

	// Destinations newly reachable in this pass that had no prior entry.
	for dest, freshResult := range fresh {
		if _, hadPrior := prior.entries[dest]; hadPrior {
			continue
		}
		next.entries[dest] = toRouteEntry(dest, freshResult, now)
		changed = append(changed, dest)
	}

	// Hard expiry regardless of hysteresis.
	for dest, entry := range next.entries {
		if !entry.Fresh(now, ExpireAfter) {
			delete(next.entries, dest)
			changed = append(changed, dest)
		}
	}

	return next, dedupeNodeIds(changed)
}

func toRouteEntry(dest model.NodeId, r Result, now time.Time) model.RouteEntry {
	return model.RouteEntry{
		DestinationId: dest,
		NextHopId:     r.NextHop,
		FullPath:      r.FullPath,
		TotalCost:     r.TotalCost,
		ComputedTs:    now,
	}
}

func dedupeNodeIds(ids []model.NodeId) []model.NodeId {
	seen := make(map[model.NodeId]bool, len(ids))
	out := make([]model.NodeId, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
