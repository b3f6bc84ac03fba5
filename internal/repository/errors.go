// Package repository provides data access to the seats, shows and
// bookings tables.  Error values defined here let handlers and
// services distinguish failure scenarios without inspecting SQL
// errors directly.
package repository

import (
	"errors"
	"fmt"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// ErrShowNotFound is returned when a referenced show does not exist.
var ErrShowNotFound = errors.New("show not found")

// HoldLapsedError is returned by BookingRepo.CreateWithSeats when one
// or more of the seats being finalized are no longer held: their
// reservation expired, was reclaimed by another shopper, or the seat
// was sold or blocked in the meantime.  Seats carries the affected
// rows so the caller can tell the customer exactly which seats need
// re-selection.  No booking is written when this error is returned.
type HoldLapsedError struct {
	Seats []model.Seat
}

// Error implements the error interface.
func (e *HoldLapsedError) Error() string {
	return fmt.Sprintf("hold lapsed for %d seat(s)", len(e.Seats))
}
