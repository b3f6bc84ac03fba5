package model

import "time"

// Booking is the permanent record created when a live hold is
// finalized.  It references the show, the seats sold and the customer
// contact details, and carries a human-readable reference code printed
// on tickets and encoded in their QR codes.
type Booking struct {
	ID               uint64        `json:"id"`
	Reference        string        `json:"reference"`
	ShowID           uint64        `json:"show_id"`
	CustomerName     string        `json:"customer_name"`
	CustomerEmail    string        `json:"customer_email"`
	TotalAmountCents uint32        `json:"total_amount_cents"`
	CreatedAt        time.Time     `json:"created_at"`
	Seats            []BookingSeat `json:"seats"`
}

// BookingSeat captures one sold seat under a booking together with the
// price it was sold at.  Prices are copied at finalize time so later
// price changes never alter an existing booking.
type BookingSeat struct {
	SeatID     uint64 `json:"seat_id"`
	Section    string `json:"section"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
	PriceCents uint32 `json:"price_cents"`
}
