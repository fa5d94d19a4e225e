// Package booking implements the screen catalog and the seat reservation
// engine.  Both are thin layers over a repository.Store: the catalog
// validates and registers screens, the engine validates a reservation
// against the current occupancy and commits it as a single unit inside
// the store's per-screen critical section.
//
// Every failure is one of the sentinel errors below, optionally wrapped
// with detail.  Callers should compare with errors.Is.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

var (
	// ErrInvalidInput reports a malformed request (empty name, no rows,
	// non-positive capacity, no seats).
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateName reports that the screen name is already registered.
	ErrDuplicateName = errors.New("duplicate screen name")
	// ErrNotFound is the parent of ErrScreenNotFound and ErrRowNotFound.
	ErrNotFound = errors.New("not found")
	// ErrScreenNotFound reports an unknown screen name or id.
	ErrScreenNotFound = fmt.Errorf("screen %w", ErrNotFound)
	// ErrRowNotFound reports a row label that the screen does not have.
	ErrRowNotFound = fmt.Errorf("row %w", ErrNotFound)
	// ErrInvalidSeat reports a seat number outside [0, capacity).
	ErrInvalidSeat = errors.New("invalid seat")
	// ErrSeatTaken reports a seat that is already reserved.
	ErrSeatTaken = errors.New("seat already reserved")
	// ErrStorage wraps any failure of the underlying store.
	ErrStorage = errors.New("storage failure")
)

// fromStore maps repository errors onto the booking taxonomy.  Errors
// that already belong to the taxonomy pass through untouched.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidSeat),
		errors.Is(err, ErrSeatTaken),
		errors.Is(err, ErrStorage):
		return err
	case errors.Is(err, repository.ErrScreenNotFound):
		return ErrScreenNotFound
	case errors.Is(err, repository.ErrRowNotFound):
		return fmt.Errorf("%w: %v", ErrRowNotFound, err)
	case errors.Is(err, repository.ErrDuplicateScreen):
		return ErrDuplicateName
	case errors.Is(err, repository.ErrDuplicateRow):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}

// IsRejection reports whether err is a business rejection rather than an
// infrastructure failure.  Context errors count as infrastructure.
func IsRejection(err error) bool {
	if err == nil || errors.Is(err, ErrStorage) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidSeat) ||
		errors.Is(err, ErrSeatTaken)
}
