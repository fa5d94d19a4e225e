package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
)

// MemoryStore keeps screens in process memory.  It is the default store
// for development and the reference implementation used by the tests.
// The catalog maps are guarded by mu; each screen carries its own lock so
// that reservations on unrelated screens never wait for each other.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint64
	names   map[string]uint64
	screens map[uint64]*memScreen
}

type memScreen struct {
	mu   sync.RWMutex
	rows map[string]model.Row
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		names:   make(map[string]uint64),
		screens: make(map[uint64]*memScreen),
	}
}

// CreateScreen registers the screen and its rows in one step.
func (s *MemoryStore) CreateScreen(ctx context.Context, name string, rows []RowSpec) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if label, dup := duplicateLabel(rows); dup {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateRow, label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name]; ok {
		return 0, ErrDuplicateScreen
	}
	s.nextID++
	id := s.nextID
	sc := &memScreen{rows: make(map[string]model.Row, len(rows))}
	for _, r := range rows {
		sc.rows[r.Label] = model.Row{ScreenID: id, Label: r.Label, Capacity: r.Capacity}
	}
	s.names[name] = id
	s.screens[id] = sc
	return id, nil
}

// ScreenIDByName resolves a screen name to its id.
func (s *MemoryStore) ScreenIDByName(ctx context.Context, name string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	if !ok {
		return 0, ErrScreenNotFound
	}
	return id, nil
}

func (s *MemoryStore) screen(id uint64) (*memScreen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.screens[id]
	if !ok {
		return nil, ErrScreenNotFound
	}
	return sc, nil
}

// GetRow returns a copy of the row.
func (s *MemoryStore) GetRow(ctx context.Context, key model.RowKey) (model.Row, error) {
	if err := ctx.Err(); err != nil {
		return model.Row{}, err
	}
	sc, err := s.screen(key.ScreenID)
	if err != nil {
		return model.Row{}, ErrRowNotFound
	}
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	r, ok := sc.rows[key.Label]
	if !ok {
		return model.Row{}, ErrRowNotFound
	}
	return r.Clone(), nil
}

// ListRows copies every row of the screen under its read lock.
func (s *MemoryStore) ListRows(ctx context.Context, screenID uint64) ([]model.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := s.screen(screenID)
	if err != nil {
		return nil, err
	}
	sc.mu.RLock()
	out := make([]model.Row, 0, len(sc.rows))
	for _, r := range sc.rows {
		out = append(out, r.Clone())
	}
	sc.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// UpdateRows holds the screen's write lock for the whole read, check and
// write cycle.
func (s *MemoryStore) UpdateRows(ctx context.Context, screenID uint64, labels []string, fn RowUpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sc, err := s.screen(screenID)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	current := make(map[string]model.Row, len(labels))
	loaded := make(map[model.RowKey]bool, len(labels))
	for _, l := range labels {
		if r, ok := sc.rows[l]; ok {
			current[l] = r.Clone()
			loaded[r.Key()] = true
		}
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}
	// Only rows handed to fn may be written back.
	for _, r := range updated {
		if !loaded[r.Key()] {
			return fmt.Errorf("%w: %q", ErrRowNotFound, r.Label)
		}
	}
	for _, r := range updated {
		sc.rows[r.Label] = r.Clone()
	}
	return nil
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
