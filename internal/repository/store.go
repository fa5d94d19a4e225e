package repository

import (
	"context"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
)

// RowSpec describes a row to create during screen registration.
type RowSpec struct {
	Label    string
	Capacity int
}

// RowUpdateFunc is called by Store.UpdateRows while the screen is locked.
// rows holds the current state of every requested label that exists;
// labels that do not exist are simply absent.  The function returns the
// rows to persist.  Returning an error aborts the update and nothing is
// written.
type RowUpdateFunc func(rows map[string]model.Row) ([]model.Row, error)

// Store is the storage abstraction shared by the catalog and the
// reservation engine.  Implementations must make CreateScreen all or
// nothing and must run UpdateRows as one critical section per screen:
// no other UpdateRows call on the same screen may interleave with it and
// readers observe either the state before or after it, never a mix.
type Store interface {
	// CreateScreen inserts a screen and all of its rows with empty
	// occupancy.  It returns the new screen id.
	CreateScreen(ctx context.Context, name string, rows []RowSpec) (uint64, error)
	// ScreenIDByName resolves a screen name.
	ScreenIDByName(ctx context.Context, name string) (uint64, error)
	// GetRow loads a single row.
	GetRow(ctx context.Context, key model.RowKey) (model.Row, error)
	// ListRows returns a consistent snapshot of every row of the screen
	// ordered by label.
	ListRows(ctx context.Context, screenID uint64) ([]model.Row, error)
	// UpdateRows locks the screen, loads the requested rows, calls fn and
	// persists the rows it returns in the same unit of work.
	UpdateRows(ctx context.Context, screenID uint64, labels []string, fn RowUpdateFunc) error
	// Migrate creates the schema when it does not exist yet.
	Migrate(ctx context.Context) error
	// Close releases the underlying resources.
	Close() error
}

// duplicateLabel reports the first label that appears more than once.
func duplicateLabel(rows []RowSpec) (string, bool) {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.Label]; ok {
			return r.Label, true
		}
		seen[r.Label] = struct{}{}
	}
	return "", false
}
