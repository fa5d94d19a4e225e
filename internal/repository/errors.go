// Package repository holds the persistence layer for screens and their
// rows.  Every store implementation reports failures with the sentinel
// values below so that higher layers can tell a missing screen apart
// from a broken connection.  ErrDuplicateScreen is produced by the
// unique index on screens.name; ErrDuplicateRow by the composite
// (screen_id, label) primary key of screen_rows.
package repository

import "errors"

// ErrScreenNotFound is returned when no screen matches the lookup.
var ErrScreenNotFound = errors.New("screen not found")

// ErrRowNotFound is returned when a screen has no row with the label.
var ErrRowNotFound = errors.New("row not found")

// ErrDuplicateScreen is returned when a screen name is already taken.
var ErrDuplicateScreen = errors.New("duplicate screen name")

// ErrDuplicateRow is returned when a registration lists the same row
// label twice for one screen.
var ErrDuplicateRow = errors.New("duplicate row label")
