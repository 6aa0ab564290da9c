package ordering_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/ordering"
)

func items(ids ...string) []ordering.Item {
	out := make([]ordering.Item, len(ids))
	for i, id := range ids {
		out[i] = ordering.Item{ID: id, Order: i}
	}
	return out
}

func TestValidate_AnyPermutationRoundTrips(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n <= 12; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("id-%d", i)
		}
		perm := rng.Perm(n)
		assignments := make([]ordering.Assignment, n)
		for i, id := range ids {
			assignments[i] = ordering.Assignment{ID: id, DisplayOrder: perm[i]}
		}

		got, err := ordering.Validate(ids, assignments)
		require.NoError(t, err)
		for i, id := range ids {
			assert.Equal(t, perm[i], got[id])
		}
		applied := apply(items(ids...), got)
		assert.True(t, dense(applied))
	}
}

func TestValidate_Failures(t *testing.T) {
	siblings := []string{"a", "b", "c"}
	cases := []struct {
		name        string
		assignments []ordering.Assignment
		field       string
	}{
		{"duplicate order", []ordering.Assignment{{"a", 0}, {"b", 0}, {"c", 2}}, "orders[1].display_order"},
		{"out of range", []ordering.Assignment{{"a", 0}, {"b", 1}, {"c", 3}}, "orders[2].display_order"},
		{"negative", []ordering.Assignment{{"a", -1}, {"b", 1}, {"c", 2}}, "orders[0].display_order"},
		{"missing sibling", []ordering.Assignment{{"a", 0}, {"b", 1}}, "orders"},
		{"unknown id", []ordering.Assignment{{"a", 0}, {"b", 1}, {"z", 2}}, "orders[2].id"},
		{"repeated id", []ordering.Assignment{{"a", 0}, {"a", 1}, {"c", 2}}, "orders[1].id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ordering.Validate(siblings, tc.assignments)
			require.Error(t, err)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.DuplicateOrder, appErr.Code)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}
}

func TestNext(t *testing.T) {
	assert.Equal(t, 0, ordering.Next(nil))
	assert.Equal(t, 3, ordering.Next(items("a", "b", "c")))
}

func TestCloseGap(t *testing.T) {
	set := items("a", "b", "c", "d")
	changes := ordering.CloseGap(set, 1)
	assert.Equal(t, map[string]int{"c": 1, "d": 2}, changes)

	var rest []ordering.Item
	for _, it := range set {
		if it.ID != "b" {
			rest = append(rest, it)
		}
	}
	assert.True(t, dense(apply(rest, changes)))
}

func TestOpenGap(t *testing.T) {
	changes := ordering.OpenGap(items("a", "b", "c"), 1)
	assert.Equal(t, map[string]int{"b": 2, "c": 3}, changes)
}

func TestCheckInsertPosition(t *testing.T) {
	assert.NoError(t, ordering.CheckInsertPosition(0, 0))
	assert.NoError(t, ordering.CheckInsertPosition(2, 2))
	assert.Error(t, ordering.CheckInsertPosition(3, 2))
	assert.Error(t, ordering.CheckInsertPosition(-1, 2))
}

func TestMove(t *testing.T) {
	set := items("a", "b", "c", "d")

	changes, err := ordering.Move(set, "a", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 0, "c": 1}, changes)

	changes, err = ordering.Move(set, "d", 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"d": 0, "a": 1, "b": 2, "c": 3}, changes)

	changes, err = ordering.Move(set, "b", 1)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = ordering.Move(set, "b", 4)
	assert.Equal(t, apperr.DuplicateOrder, apperr.CodeOf(err))
}

func TestCompact(t *testing.T) {
	set := []ordering.Item{{"a", 0}, {"c", 4}, {"b", 2}}
	changes := ordering.Compact(set)
	assert.Equal(t, map[string]int{"b": 1, "c": 2}, changes)
	assert.True(t, dense(apply(set, changes)))
}

// apply returns items with changes applied, sorted by order.
func apply(items []ordering.Item, changes map[string]int) []ordering.Item {
	out := make([]ordering.Item, len(items))
	for i, it := range items {
		if o, ok := changes[it.ID]; ok {
			it.Order = o
		}
		out[i] = it
	}
	return ordering.Sorted(out)
}

// dense reports whether items hold exactly the orders 0..N-1.
func dense(items []ordering.Item) bool {
	for i, it := range ordering.Sorted(items) {
		if it.Order != i {
			return false
		}
	}
	return true
}
