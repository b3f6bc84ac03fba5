// Package queue defines message payloads exchanged over the message
// broker and the publisher/consumer plumbing around them.
package queue

// BookingConfirmedEvent is published when a hold is successfully
// finalized into a booking.  It carries enough information for
// downstream consumers (ticket email delivery, door-scanning sync,
// sales statistics) to act without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	Reference        string   `json:"reference"`
	ShowID           uint64   `json:"show_id"`
	ShowTitle        string   `json:"show_title"`
	VenueName        string   `json:"venue_name"`
	StartsAt         string   `json:"starts_at"`
	SeatLabels       []string `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
