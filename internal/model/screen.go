package model

// Screen is a named screening room.  Screens are created once together
// with all of their rows and are never modified afterwards.
//
// Fields:
//  ID   – surrogate primary key (screens.id).
//  Name – unique human readable name (screens.name).
type Screen struct {
	ID   uint64 // screens.id
	Name string // screens.name
}

// RowKey identifies a row within a screen.  The pair is stored as two
// separate columns; it is never concatenated into a single string id.
type RowKey struct {
	ScreenID uint64 // screen_rows.screen_id
	Label    string // screen_rows.label
}

// Row is a labelled row of seats inside a screen.  Seats are numbered
// 0..Capacity-1 and Occupied holds the seats that are already reserved.
//
// Fields:
//  ScreenID – screen the row belongs to.
//  Label    – row label, unique within the screen (e.g. "A").
//  Capacity – total number of seats in the row.
//  Occupied – reserved seats; always a subset of [0, Capacity).
type Row struct {
	ScreenID uint64  // screen_rows.screen_id
	Label    string  // screen_rows.label
	Capacity int     // screen_rows.capacity
	Occupied SeatSet // screen_rows.occupied (bitmap)
}

// Key returns the composite identity of the row.
func (r Row) Key() RowKey { return RowKey{ScreenID: r.ScreenID, Label: r.Label} }

// Contains reports whether seat is a valid seat number for the row.
func (r Row) Contains(seat int) bool { return seat >= 0 && seat < r.Capacity }

// Free returns the unreserved seats of the row in ascending order.
func (r Row) Free() []int {
	out := make([]int, 0, max(0, r.Capacity-r.Occupied.Len()))
	for seat := 0; seat < r.Capacity; seat++ {
		if !r.Occupied.Has(seat) {
			out = append(out, seat)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate the occupancy without
// touching the stored value.
func (r Row) Clone() Row {
	r.Occupied = r.Occupied.Clone()
	return r
}
