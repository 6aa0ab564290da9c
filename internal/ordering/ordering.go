// Package ordering keeps display orders dense (0..N-1) within a sibling set.
//
// Every function is pure: it takes the current siblings and returns the
// orders that must change. Callers persist the returned map inside the same
// transaction that holds the scope lock.
package ordering

import (
	"fmt"
	"sort"

	"photo-studio-backend/internal/apperr"
)

type Item struct {
	ID    string
	Order int
}

type Assignment struct {
	ID           string
	DisplayOrder int
}

// Sorted returns a copy of items ordered by Order, then ID.
func Sorted(items []Item) []Item {
	out := append([]Item{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Validate checks that assignments are a full permutation of the sibling set
// and returns the resulting id to order mapping.
func Validate(siblings []string, assignments []Assignment) (map[string]int, error) {
	n := len(siblings)
	known := make(map[string]bool, n)
	for _, id := range siblings {
		known[id] = true
	}

	result := make(map[string]int, len(assignments))
	taken := make(map[int]string, len(assignments))
	for i, a := range assignments {
		if !known[a.ID] {
			return nil, apperr.Validation(apperr.DuplicateOrder, fmt.Sprintf("orders[%d].id", i),
				"%s is not part of this sibling set", a.ID)
		}
		if _, dup := result[a.ID]; dup {
			return nil, apperr.Validation(apperr.DuplicateOrder, fmt.Sprintf("orders[%d].id", i),
				"%s is assigned more than once", a.ID)
		}
		if a.DisplayOrder < 0 || a.DisplayOrder >= n {
			return nil, apperr.Validation(apperr.DuplicateOrder, fmt.Sprintf("orders[%d].display_order", i),
				"display order %d is outside 0..%d", a.DisplayOrder, n-1)
		}
		if other, dup := taken[a.DisplayOrder]; dup {
			return nil, apperr.Validation(apperr.DuplicateOrder, fmt.Sprintf("orders[%d].display_order", i),
				"display order %d is already assigned to %s", a.DisplayOrder, other)
		}
		taken[a.DisplayOrder] = a.ID
		result[a.ID] = a.DisplayOrder
	}

	if len(result) != n {
		return nil, apperr.Validation(apperr.DuplicateOrder, "orders",
			"expected %d assignments, got %d", n, len(result))
	}
	return result, nil
}

// Next returns the slot a newly appended sibling receives.
func Next(items []Item) int {
	next := 0
	for _, it := range items {
		if it.Order >= next {
			next = it.Order + 1
		}
	}
	return next
}

// CloseGap returns the new orders of the siblings above a removed slot.
func CloseGap(items []Item, removed int) map[string]int {
	changes := make(map[string]int)
	for _, it := range items {
		if it.Order > removed {
			changes[it.ID] = it.Order - 1
		}
	}
	return changes
}

// OpenGap returns the new orders of the siblings at or after an insert slot.
func OpenGap(items []Item, at int) map[string]int {
	changes := make(map[string]int)
	for _, it := range items {
		if it.Order >= at {
			changes[it.ID] = it.Order + 1
		}
	}
	return changes
}

// CheckInsertPosition validates an explicit target slot for a set of size
// siblings (the slot after the last sibling is allowed).
func CheckInsertPosition(at, size int) error {
	if at < 0 || at > size {
		return apperr.Validation(apperr.DuplicateOrder, "display_order",
			"display order %d is outside 0..%d", at, size)
	}
	return nil
}

// Move repositions id within its own sibling set. The returned map includes
// id itself.
func Move(items []Item, id string, to int) (map[string]int, error) {
	if to < 0 || to >= len(items) {
		return nil, apperr.Validation(apperr.DuplicateOrder, "display_order",
			"display order %d is outside 0..%d", to, len(items)-1)
	}
	ordered := Sorted(items)
	from := -1
	for i, it := range ordered {
		if it.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, fmt.Errorf("ordering: %s is not a sibling", id)
	}

	moved := ordered[from]
	rest := append(append([]Item{}, ordered[:from]...), ordered[from+1:]...)
	final := make([]Item, 0, len(ordered))
	final = append(final, rest[:to]...)
	final = append(final, moved)
	final = append(final, rest[to:]...)
	return diff(ordered, final), nil
}

// Compact renumbers items to 0..N-1 keeping their relative order.
func Compact(items []Item) map[string]int {
	ordered := Sorted(items)
	return diff(ordered, ordered)
}

func diff(before, after []Item) map[string]int {
	old := make(map[string]int, len(before))
	for _, it := range before {
		old[it.ID] = it.Order
	}
	changes := make(map[string]int)
	for i, it := range after {
		if old[it.ID] != i {
			changes[it.ID] = i
		}
	}
	return changes
}
