// Package realtime pushes advisory seat-change notifications over
// Redis pub/sub.  Browsing clients subscribe per show to refresh the
// displayed seat map when other shoppers reserve, release or buy
// seats.  The channel is UX only: reservation correctness never
// depends on a notification arriving.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeatEvent is the payload published on seat status changes.
type SeatEvent struct {
	ShowID  uint64   `json:"show_id"`
	SeatIDs []uint64 `json:"seat_ids"`
	Status  string   `json:"status"`
	At      string   `json:"at"`
}

// Publisher publishes SeatEvents.  A Publisher constructed with a nil
// client degrades to a no-op, mirroring how the rest of the service
// treats an unreachable Redis.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher returns a Publisher over the given Redis client.
func NewPublisher(rdb *redis.Client) *Publisher { return &Publisher{rdb: rdb} }

// SeatsChanged publishes the new status of the given seats on the
// show's channel.  Failures are logged and swallowed; this must never
// block or fail the request path.
func (p *Publisher) SeatsChanged(ctx context.Context, showID uint64, seatIDs []uint64, status string) {
	if p == nil || p.rdb == nil || len(seatIDs) == 0 {
		return
	}
	ev := SeatEvent{
		ShowID:  showID,
		SeatIDs: seatIDs,
		Status:  status,
		At:      time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: marshal seat event failed: %v", err)
		return
	}
	channel := fmt.Sprintf("seats.events.%d", showID)
	if err := p.rdb.Publish(ctx, channel, body).Err(); err != nil {
		log.Printf("realtime: publish on %s failed: %v", channel, err)
	}
}
