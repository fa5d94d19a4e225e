package booking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

func newTestBooking(t *testing.T) (*Catalog, *Engine) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewCatalog(store), NewEngine(store)
}

func TestRegisterScreen_ThenAvailability(t *testing.T) {
	ctx := context.Background()
	catalog, engine := newTestBooking(t)

	_, err := catalog.RegisterScreen(ctx, "inox", map[string]int{"A": 10, "B": 15})
	require.NoError(t, err)

	id, err := catalog.ResolveScreen(ctx, "inox")
	require.NoError(t, err)

	seats, err := engine.GetAvailableSeats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, seqTo(10), seats["A"])
	assert.Equal(t, seqTo(15), seats["B"])
	assert.Len(t, seats, 2)
}

func TestRegisterScreen_DuplicateName(t *testing.T) {
	ctx := context.Background()
	catalog, engine := newTestBooking(t)

	first, err := catalog.RegisterScreen(ctx, "inox", map[string]int{"A": 10})
	require.NoError(t, err)

	_, err = catalog.RegisterScreen(ctx, "inox", map[string]int{"Z": 3})
	assert.ErrorIs(t, err, ErrDuplicateName)

	seats, err := engine.GetAvailableSeats(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"A": seqTo(10)}, seats, "first screen must be unaffected")
}

func TestRegisterScreen_InvalidInput(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newTestBooking(t)

	cases := map[string]struct {
		name string
		rows map[string]int
	}{
		"empty name":        {name: "", rows: map[string]int{"A": 1}},
		"blank name":        {name: "   ", rows: map[string]int{"A": 1}},
		"long name":         {name: strings.Repeat("x", MaxNameLength+1), rows: map[string]int{"A": 1}},
		"no rows":           {name: "inox", rows: map[string]int{}},
		"nil rows":          {name: "inox"},
		"zero capacity":     {name: "inox", rows: map[string]int{"A": 0}},
		"negative capacity": {name: "inox", rows: map[string]int{"A": 5, "B": -1}},
		"huge capacity":     {name: "inox", rows: map[string]int{"A": MaxRowCapacity + 1}},
		"blank label":       {name: "inox", rows: map[string]int{" ": 5}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.RegisterScreen(ctx, tc.name, tc.rows)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := catalog.ResolveScreen(ctx, "inox")
	assert.ErrorIs(t, err, ErrScreenNotFound, "rejected registrations leave no screen")
}

func TestResolveScreen_NotFound(t *testing.T) {
	catalog, _ := newTestBooking(t)
	_, err := catalog.ResolveScreen(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrScreenNotFound)
}

func TestGetRow(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newTestBooking(t)
	id, err := catalog.RegisterScreen(ctx, "inox", map[string]int{"A": 10})
	require.NoError(t, err)

	row, err := catalog.GetRow(ctx, id, "A")
	require.NoError(t, err)
	assert.Equal(t, 10, row.Capacity)
	assert.Equal(t, id, row.ScreenID)

	_, err = catalog.GetRow(ctx, id, "B")
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRows(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newTestBooking(t)
	id, err := catalog.RegisterScreen(ctx, "inox", map[string]int{"C": 1, "A": 2, "B": 3})
	require.NoError(t, err)

	rows, err := catalog.ListRows(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].Label)
	assert.Equal(t, "C", rows[2].Label)

	_, err = catalog.ListRows(ctx, id+100)
	assert.ErrorIs(t, err, ErrScreenNotFound)
}

func seqTo(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
