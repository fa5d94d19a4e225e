package model

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

// SeatSet is a bitmap of seat numbers.  Bit n of word n/64 is set when
// seat n is a member.  The zero value is an empty set.
type SeatSet []uint64

// ErrCorruptSeatSet is returned when a persisted bitmap cannot be decoded.
var ErrCorruptSeatSet = errors.New("corrupt seat set encoding")

// NewSeatSet builds a set from the given seats.  Negative numbers are
// ignored because they can never be seats.
func NewSeatSet(seats ...int) SeatSet {
	var s SeatSet
	for _, n := range seats {
		s.Add(n)
	}
	return s
}

// Has reports whether seat is in the set.
func (s SeatSet) Has(seat int) bool {
	if seat < 0 {
		return false
	}
	w := seat / 64
	if w >= len(s) {
		return false
	}
	return s[w]&(1<<(uint(seat)%64)) != 0
}

// Add inserts seat into the set, growing the bitmap when needed.
func (s *SeatSet) Add(seat int) {
	if seat < 0 {
		return
	}
	w := seat / 64
	for len(*s) <= w {
		*s = append(*s, 0)
	}
	(*s)[w] |= 1 << (uint(seat) % 64)
}

// Union returns a new set holding every seat of s and o.
func (s SeatSet) Union(o SeatSet) SeatSet {
	n := len(s)
	if len(o) > n {
		n = len(o)
	}
	out := make(SeatSet, n)
	copy(out, s)
	for i, w := range o {
		out[i] |= w
	}
	return out.trim()
}

// Intersect returns the seats present in both sets.
func (s SeatSet) Intersect(o SeatSet) SeatSet {
	n := len(s)
	if len(o) < n {
		n = len(o)
	}
	out := make(SeatSet, n)
	for i := 0; i < n; i++ {
		out[i] = s[i] & o[i]
	}
	return out.trim()
}

// Len returns the number of seats in the set.
func (s SeatSet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no members.
func (s SeatSet) Empty() bool { return s.Len() == 0 }

// Max returns the highest seat in the set, or -1 when empty.
func (s SeatSet) Max() int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != 0 {
			return i*64 + 63 - bits.LeadingZeros64(s[i])
		}
	}
	return -1
}

// Seats lists the members in ascending order.
func (s SeatSet) Seats() []int {
	out := make([]int, 0, s.Len())
	for i, w := range s {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, i*64+tz)
			w &^= 1 << uint(tz)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s SeatSet) Clone() SeatSet {
	if s == nil {
		return nil
	}
	out := make(SeatSet, len(s))
	copy(out, s)
	return out
}

// MarshalBinary encodes the bitmap as little endian 64-bit words with
// trailing zero words removed.  An empty set encodes to an empty slice.
func (s SeatSet) MarshalBinary() ([]byte, error) {
	t := s.trim()
	out := make([]byte, 8*len(t))
	for i, w := range t {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out, nil
}

// UnmarshalBinary decodes a value produced by MarshalBinary.
func (s *SeatSet) UnmarshalBinary(data []byte) error {
	if len(data)%8 != 0 {
		return ErrCorruptSeatSet
	}
	out := make(SeatSet, len(data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	*s = out.trim()
	return nil
}

func (s SeatSet) trim() SeatSet {
	n := len(s)
	for n > 0 && s[n-1] == 0 {
		n--
	}
	return s[:n]
}
