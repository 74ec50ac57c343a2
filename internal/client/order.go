package client

import (
	"sort"
	"strings"
)

// SortMode selects the secondary ordering applied after favorites.
type SortMode int

const (
	// SortInsertion keeps the server-provided order.
	SortInsertion SortMode = iota
	// SortAlphabetical orders by name, case-insensitive.
	SortAlphabetical
	// SortCustom applies a persisted drag order; ids missing from the order
	// keep their relative insertion position after the ordered ones.
	SortCustom
)

// SortForDisplay orders items favorite-first, then by the selected mode.
// The sort is stable so equal items keep their fetched order.
func SortForDisplay(items []Item, mode SortMode, customOrder []int64) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)

	position := make(map[int64]int, len(customOrder))
	for index, id := range customOrder {
		position[id] = index
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Favorite != sorted[j].Favorite {
			return sorted[i].Favorite
		}
		switch mode {
		case SortAlphabetical:
			return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
		case SortCustom:
			pi, iOK := position[sorted[i].ID]
			pj, jOK := position[sorted[j].ID]
			if iOK && jOK {
				return pi < pj
			}
			// Ordered ids come before unordered ones.
			return iOK && !jOK
		default:
			return false
		}
	})
	return sorted
}

// Paginate slices a flat list into pages of at most capacity items.
func Paginate(items []Item, capacity int) [][]Item {
	if capacity <= 0 || len(items) == 0 {
		return nil
	}
	var pages [][]Item
	for start := 0; start < len(items); start += capacity {
		end := start + capacity
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, items[start:end])
	}
	return pages
}

// Group is a labelled run of items in the grouped view.
type Group struct {
	Label string
	Items []Item
}

// Page is one screen of the grouped view. A group split across pages appears
// on each page with its header repeated.
type Page []Group

// PaginateGrouped packs groups into pages greedily. Each group charges a
// header overhead against the page capacity. A group that does not fit the
// remainder of the current page starts fresh on a new page when it would fit
// there whole; groups larger than a full page are split. The packing is not
// guaranteed optimal.
func PaginateGrouped(groups []Group, capacity, headerCost int) []Page {
	if capacity <= headerCost {
		return nil
	}

	var pages []Page
	var current Page
	remaining := capacity

	flush := func() {
		if len(current) > 0 {
			pages = append(pages, current)
			current = nil
			remaining = capacity
		}
	}

	for _, group := range groups {
		if len(group.Items) == 0 {
			continue
		}
		cost := headerCost + len(group.Items)

		if cost > remaining && cost <= capacity {
			flush()
		}

		items := group.Items
		for len(items) > 0 {
			if remaining <= headerCost {
				flush()
			}
			take := remaining - headerCost
			if take > len(items) {
				take = len(items)
			}
			current = append(current, Group{Label: group.Label, Items: items[:take]})
			remaining -= headerCost + take
			items = items[take:]
		}
	}
	flush()
	return pages
}
