// Package service implements the seat reservation protocol: placing
// time-bounded exclusive holds on seats, lazily reclaiming expired
// holds, and finalizing holds into bookings.  All mutual exclusion is
// delegated to the store's conditional writes; the service itself is
// stateless across calls.
package service

import (
	"fmt"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// SeatRef identifies a seat in both machine- and human-readable form.
// Conflict errors carry SeatRefs so the seat-map UI can deselect
// exactly the affected seats and tell the customer which ones were
// lost ("Row C, Seat 4") without restarting the whole flow.
type SeatRef struct {
	SeatID     uint64 `json:"seat_id"`
	Section    string `json:"section"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
}

// Label renders the seat the way it is named to customers.
func (r SeatRef) Label() string {
	return fmt.Sprintf("Row %s, Seat %d", r.RowLabel, r.SeatNumber)
}

func refOf(s model.Seat) SeatRef {
	return SeatRef{SeatID: s.ID, Section: s.Section, RowLabel: s.RowLabel, SeatNumber: s.SeatNumber}
}

func refsOf(seats []model.Seat) []SeatRef {
	refs := make([]SeatRef, 0, len(seats))
	for _, s := range seats {
		refs = append(refs, refOf(s))
	}
	return refs
}

// ValidationError reports malformed input.  It is raised before any
// store access and maps to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports references to seats or shows that do not
// exist.  It maps to HTTP 400 on the reservation path (the client sent
// identifiers that were never valid) and 404 on lookups.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// ConflictError reports that one or more seats are unavailable, either
// because they were already reserved, sold or blocked, or because a
// concurrent shopper won the race for them.  Seats names the affected
// seats; seats outside it remain untouched from the caller's
// perspective.  Maps to HTTP 409.
type ConflictError struct {
	Msg   string
	Seats []SeatRef
}

func (e *ConflictError) Error() string { return e.Msg }

// InternalError wraps store or configuration failures.  The request
// never partially commits when one is returned.  Maps to HTTP 500.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *InternalError) Unwrap() error { return e.Err }
