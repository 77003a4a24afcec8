// Package order implements drag reordering of todo lists.
//
// Order is positional: a list's order is its slice order and there is no rank
// field to maintain. Move is the pure array-move used for drops; Drag is the
// gesture state that decides when a drop happens.
package order

// Move removes the item with fromID and reinserts it at the index that toID
// occupied before the removal. The result is a new slice; items is not modified.
//
// The second return value is false, and items is returned unchanged, when
// fromID == toID or either id is not present.
func Move[T any](items []T, idOf func(T) string, fromID, toID string) ([]T, bool) {
	if fromID == toID {
		return items, false
	}
	from, to := -1, -1
	for i, it := range items {
		switch idOf(it) {
		case fromID:
			from = i
		case toID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return items, false
	}

	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	// to is the drop target's index in the original list. Removing from shifts
	// later items down by one, which is the array-move semantics we want: the
	// moved item ends up exactly where the target was.
	moved := items[from]
	out = append(out, moved)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out, true
}

// ApplyHint orders items by a previously known id order. Items whose ids are
// not in hint keep their relative order and go after the hinted ones. Ids in
// hint that are no longer present are ignored.
func ApplyHint[T any](items []T, idOf func(T) string, hint []string) []T {
	if len(hint) == 0 || len(items) < 2 {
		return items
	}
	byID := make(map[string]int, len(items))
	for i, it := range items {
		byID[idOf(it)] = i
	}

	out := make([]T, 0, len(items))
	used := make([]bool, len(items))
	for _, id := range hint {
		i, ok := byID[id]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, items[i])
	}
	for i, it := range items {
		if !used[i] {
			out = append(out, it)
		}
	}
	return out
}

// IDs returns the ids of items in order
func IDs[T any](items []T, idOf func(T) string) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = idOf(it)
	}
	return ids
}
