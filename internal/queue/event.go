// Package queue defines the domain events exchanged over the message
// broker and the audit consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventsQueue is the durable queue every booking event is routed to.
const EventsQueue = "booking.events"

// Event types.
const (
	TypeScreenRegistered = "screen.registered"
	TypeSeatsReserved    = "seats.reserved"
)

// Event is published after a screen is registered or seats are reserved.
// It carries enough information for downstream consumers to log, notify
// or feed analytics without querying the store.
type Event struct {
	EventID    string           `json:"event_id"`
	Type       string           `json:"type"`
	OccurredAt string           `json:"occurred_at"`
	ScreenID   uint64           `json:"screen_id"`
	ScreenName string           `json:"screen_name"`
	Rows       map[string]int   `json:"rows,omitempty"`  // screen.registered: label -> capacity
	Seats      map[string][]int `json:"seats,omitempty"` // seats.reserved: label -> seats
}

// NewScreenRegistered builds a screen.registered event.
func NewScreenRegistered(screenID uint64, name string, rows map[string]int) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       TypeScreenRegistered,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		ScreenID:   screenID,
		ScreenName: name,
		Rows:       rows,
	}
}

// NewSeatsReserved builds a seats.reserved event.
func NewSeatsReserved(screenID uint64, name string, seats map[string][]int) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       TypeSeatsReserved,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		ScreenID:   screenID,
		ScreenName: name,
		Seats:      seats,
	}
}
