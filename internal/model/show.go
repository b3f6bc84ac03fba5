package model

import "time"

// Show represents a scheduled performance for which seats are sold.
// Seat rows reference their show by ID; the show itself only carries
// presentation data used in availability listings and booking events.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – title of the performance.
//  VenueName – name of the stage or hall it plays in.
//  StartsAt  – when the performance begins.
type Show struct {
	ID        uint64    // shows.id
	Title     string    // shows.title
	VenueName string    // shows.venue_name
	StartsAt  time.Time // shows.starts_at
}
