package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

// Engine reserves seats and reports availability.
//
// A reservation moves through Validating -> Committing -> Done, or
// Validating -> Rejected.  Both phases run inside one Store.UpdateRows
// call, so the rows cannot change between the check and the write and
// nothing is written unless every row passes.
type Engine struct {
	store repository.Store
}

// NewEngine returns an Engine backed by store.
func NewEngine(store repository.Store) *Engine {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	return &Engine{store: store}
}

// Reserve marks the requested seats (row label to seat numbers) of the
// screen as occupied.  Either every seat is reserved or none is; the
// returned error is the first validation failure in label order.
// Repeated seat numbers within a row count once.
func (e *Engine) Reserve(ctx context.Context, screenID uint64, requested map[string][]int) error {
	if len(requested) == 0 {
		return fmt.Errorf("%w: no rows requested", ErrInvalidInput)
	}
	labels := make([]string, 0, len(requested))
	total := 0
	for label, seats := range requested {
		labels = append(labels, label)
		total += len(seats)
	}
	if total == 0 {
		return fmt.Errorf("%w: no seats requested", ErrInvalidInput)
	}
	sort.Strings(labels)

	err := e.store.UpdateRows(ctx, screenID, labels, func(rows map[string]model.Row) ([]model.Row, error) {
		// Validating: nothing below may touch the store.
		updated := make([]model.Row, 0, len(labels))
		for _, label := range labels {
			row, ok := rows[label]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrRowNotFound, label)
			}
			for _, seat := range requested[label] {
				if !row.Contains(seat) {
					return nil, fmt.Errorf("%w: row %q seat %d outside [0, %d)", ErrInvalidSeat, label, seat, row.Capacity)
				}
			}
			want := model.NewSeatSet(requested[label]...)
			if want.Empty() {
				continue
			}
			if taken := row.Occupied.Intersect(want); !taken.Empty() {
				return nil, fmt.Errorf("%w: row %q seats %v", ErrSeatTaken, label, taken.Seats())
			}
			row.Occupied = row.Occupied.Union(want)
			updated = append(updated, row)
		}
		// Committing: the store persists updated in the same unit of work.
		return updated, nil
	})
	return fromStore(err)
}

// GetAvailableSeats returns the free seats of every row of the screen in
// ascending order.  The rows come from a single store snapshot.
func (e *Engine) GetAvailableSeats(ctx context.Context, screenID uint64) (map[string][]int, error) {
	rows, err := e.store.ListRows(ctx, screenID)
	if err != nil {
		return nil, fromStore(err)
	}
	out := make(map[string][]int, len(rows))
	for _, r := range rows {
		out[r.Label] = r.Free()
	}
	return out, nil
}
