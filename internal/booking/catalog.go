package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

// Limits enforced at registration.  They mirror the column sizes of the
// SQL schema and bound the size of a row's bitmap.
const (
	MaxNameLength  = 191
	MaxLabelLength = 32
	MaxRowCapacity = 100000
)

// Catalog owns screens and rows: it registers a screen together with its
// rows, resolves names to ids and looks up single rows.
type Catalog struct {
	store repository.Store
}

// NewCatalog returns a Catalog backed by store.
func NewCatalog(store repository.Store) *Catalog {
	if store == nil {
		panic("nil store passed to NewCatalog")
	}
	return &Catalog{store: store}
}

// RegisterScreen creates a screen and every row in rows (label to
// capacity).  Registration is all or nothing.
func (c *Catalog) RegisterScreen(ctx context.Context, name string, rows map[string]int) (uint64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: screen name is required", ErrInvalidInput)
	}
	if len(name) > MaxNameLength {
		return 0, fmt.Errorf("%w: screen name longer than %d bytes", ErrInvalidInput, MaxNameLength)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: at least one row is required", ErrInvalidInput)
	}
	specs := make([]repository.RowSpec, 0, len(rows))
	for label, capacity := range rows {
		if strings.TrimSpace(label) == "" || len(label) > MaxLabelLength {
			return 0, fmt.Errorf("%w: row label %q", ErrInvalidInput, label)
		}
		if capacity <= 0 || capacity > MaxRowCapacity {
			return 0, fmt.Errorf("%w: row %q capacity %d", ErrInvalidInput, label, capacity)
		}
		specs = append(specs, repository.RowSpec{Label: label, Capacity: capacity})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Label < specs[j].Label })

	id, err := c.store.CreateScreen(ctx, name, specs)
	if err != nil {
		return 0, fromStore(err)
	}
	return id, nil
}

// ResolveScreen returns the id of the named screen.
func (c *Catalog) ResolveScreen(ctx context.Context, name string) (uint64, error) {
	id, err := c.store.ScreenIDByName(ctx, name)
	if err != nil {
		return 0, fromStore(err)
	}
	return id, nil
}

// GetRow returns the row with the given label.
func (c *Catalog) GetRow(ctx context.Context, screenID uint64, label string) (model.Row, error) {
	row, err := c.store.GetRow(ctx, model.RowKey{ScreenID: screenID, Label: label})
	if err != nil {
		return model.Row{}, fromStore(err)
	}
	return row, nil
}

// ListRows returns every row of the screen ordered by label.
func (c *Catalog) ListRows(ctx context.Context, screenID uint64) ([]model.Row, error) {
	rows, err := c.store.ListRows(ctx, screenID)
	if err != nil {
		return nil, fromStore(err)
	}
	return rows, nil
}
