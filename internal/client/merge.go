// Package client holds the browser-resident reconciliation logic as pure
// functions: merging server-backed and local-only shortcuts, adopting or
// keeping configuration overrides, and packing tiles into pages. Everything
// here is side-effect free so embedding clients can unit-test their state
// handling without network or storage.
package client

import "time"

// Item is a displayable shortcut. Local items exist only in browser storage
// and never reach the server.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ParentLabel string    `json:"parent_label"`
	ChildLabel  string    `json:"child_label"`
	Favorite    bool      `json:"favorite"`
	Clicks      int64     `json:"clicks"`
	SortIndex   int64     `json:"sort_index"`
	CreatedAt   time.Time `json:"created_at"`
	Local       bool      `json:"isLocal,omitempty"`
}

// Merge unions the server-fetched list with the browser-local list. Server
// items whose id appears in hiddenIDs are filtered out: a non-admin delete is
// a per-browser hide, not a real deletion. Local items are always appended
// and are never subject to hiding by id.
func Merge(server, local []Item, hiddenIDs []int64) []Item {
	hidden := make(map[int64]struct{}, len(hiddenIDs))
	for _, id := range hiddenIDs {
		hidden[id] = struct{}{}
	}

	merged := make([]Item, 0, len(server)+len(local))
	for _, item := range server {
		if _, ok := hidden[item.ID]; ok {
			continue
		}
		item.Local = false
		merged = append(merged, item)
	}
	for _, item := range local {
		item.Local = true
		merged = append(merged, item)
	}
	return merged
}

// MutationTarget decides where a create or edit goes.
type MutationTarget int

const (
	// TargetLocal keeps the mutation in browser storage.
	TargetLocal MutationTarget = iota
	// TargetServer sends the mutation to the synchronization service.
	TargetServer
)

// ResolveMutationTarget routes non-admin edits, and edits of items already
// marked local, to browser storage; everything else goes to the server.
func ResolveMutationTarget(isAdmin bool, item Item) MutationTarget {
	if !isAdmin || item.Local {
		return TargetLocal
	}
	return TargetServer
}

// ShouldTrackClick reports whether a click should hit the server counter.
// Local-only items have no server row to increment.
func ShouldTrackClick(item Item) bool {
	return !item.Local
}
