package model

import "time"

// Seat status values as stored in the seats table.  A reserved seat is
// only effectively reserved while its ReservedUntil timestamp lies in
// the future; readers must treat a lapsed reservation as available
// (lazy expiry) and correct the stored status opportunistically.
const (
	SeatAvailable = "available"
	SeatReserved  = "reserved"
	SeatSold      = "sold"
	SeatBlocked   = "blocked"
)

// Seat describes a single sellable seat for one show.  Seats are
// created in bulk at show setup and afterwards only toggle between
// available and reserved until they become terminally sold or blocked.
//
// Fields:
//  ID            – primary key identifier.
//  ShowID        – show to which this seat belongs.
//  Section       – seating section (e.g. "Parkett", "Balkong").
//  RowLabel      – letter or string designating the row.
//  SeatNumber    – number of the seat within the row.
//  PriceCents    – price in minor currency units (øre).
//  Status        – one of available, reserved, sold, blocked.
//  ReservedUntil – hold expiry; non-nil only while Status is reserved.
type Seat struct {
	ID            uint64     // seats.id
	ShowID        uint64     // seats.show_id
	Section       string     // seats.section
	RowLabel      string     // seats.row_label
	SeatNumber    uint32     // seats.seat_number
	PriceCents    uint32     // seats.price_cents
	Status        string     // seats.status
	ReservedUntil *time.Time // seats.reserved_until (nullable)
}
