package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// DefaultHoldTTL is the length of the exclusive hold a successful
// reservation places on its seats.  Expiry is enforced lazily: the
// timestamp alone decides availability, never a background sweep.
const DefaultHoldTTL = 10 * time.Minute

// SeatStore is the transactional seat persistence the reservation
// protocol runs against.  Every mutation is a conditional write that
// re-asserts the expected current status and reports affected rows;
// the store's predicate evaluation is the serialization point between
// concurrent shoppers.
type SeatStore interface {
	// SeatsForShow returns current rows for the given seat IDs scoped
	// to the show; a short result means unknown seats were referenced.
	SeatsForShow(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error)
	// ReserveAvailable flips available seats to reserved with the
	// given expiry and returns how many rows it actually updated.
	ReserveAvailable(ctx context.Context, showID uint64, seatIDs []uint64, until time.Time) (int64, error)
	// ReleaseReservedAt releases seats reserved with exactly the given
	// expiry, undoing a partial hold without touching competing holds.
	ReleaseReservedAt(ctx context.Context, showID uint64, seatIDs []uint64, until time.Time) (int64, error)
	// ReleaseExpired resets lapsed reservations back to available.
	ReleaseExpired(ctx context.Context, showID uint64, seatIDs []uint64) (int64, error)
}

// Notifier pushes advisory seat-change events to browsing clients.
// Notifications are UX only; correctness never depends on them and
// implementations must not block or fail the request path.
type Notifier interface {
	SeatsChanged(ctx context.Context, showID uint64, seatIDs []uint64, status string)
}

// Hold is the result of a successful reservation: a self-consistent,
// time-bounded exclusive claim on every requested seat.  The client
// carries it across the checkout flow and presents Token when
// finalizing.
type Hold struct {
	ShowID        uint64
	SeatIDs       []uint64
	ReservedUntil time.Time
	Token         string
}

// ReservationService places holds on seats with all-or-nothing
// semantics: either every requested seat becomes reserved by the call,
// or none do and the seats remain untouched from the caller's
// perspective.
type ReservationService struct {
	seats   SeatStore
	tokens  *HoldTokens
	notify  Notifier
	holdTTL time.Duration
	now     func() time.Time
}

// NewReservationService constructs a ReservationService.  notify may
// be nil when no realtime channel is configured.  A non-positive
// holdTTL falls back to DefaultHoldTTL.
func NewReservationService(seats SeatStore, tokens *HoldTokens, notify Notifier, holdTTL time.Duration) *ReservationService {
	if seats == nil || tokens == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &ReservationService{
		seats:   seats,
		tokens:  tokens,
		notify:  notify,
		holdTTL: holdTTL,
		now:     time.Now,
	}
}

// Reserve attempts to hold every seat in seatIDs for the show.
//
// The sequence is: validate input, snapshot the current rows, reclaim
// any lapsed holds among them (best effort), reject with a conflict if
// any seat is effectively unavailable, then commit via a single
// conditional write and verify the affected-row count.  If a
// concurrent caller won some seats between snapshot and commit, the
// partial hold is rolled back and a conflict returned, so no caller
// ever observes a half-applied reservation.
func (s *ReservationService) Reserve(ctx context.Context, showID uint64, seatIDs []uint64) (*Hold, error) {
	if showID == 0 {
		return nil, &ValidationError{Msg: "show_id is required"}
	}
	if len(seatIDs) == 0 {
		return nil, &ValidationError{Msg: "seat_ids is required"}
	}
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return nil, &ValidationError{Msg: "no valid seat IDs provided"}
	}

	rows, err := s.seats.SeatsForShow(ctx, showID, ids)
	if err != nil {
		return nil, &InternalError{Op: "load seats", Err: err}
	}
	if len(rows) != len(ids) {
		return nil, &NotFoundError{Msg: "some seats do not exist"}
	}

	now := s.now().UTC()
	expired := make([]uint64, 0)
	unavailable := make([]SeatRef, 0)
	for _, seat := range rows {
		switch seat.Status {
		case "", model.SeatAvailable:
			// effectively free
		case model.SeatReserved:
			// A lapsed or null expiry means the hold is logically over;
			// the seat is available now and its stored status merely
			// stale.
			if seat.ReservedUntil == nil || !seat.ReservedUntil.After(now) {
				expired = append(expired, seat.ID)
			} else {
				unavailable = append(unavailable, refOf(seat))
			}
		default: // sold, blocked
			unavailable = append(unavailable, refOf(seat))
		}
	}

	// Courtesy correction of stale statuses.  A failure here must not
	// abort the attempt: the conditional commit below simply will not
	// match the still-stale rows and the caller gets a conflict.
	if len(expired) > 0 {
		if _, err := s.seats.ReleaseExpired(ctx, showID, expired); err != nil {
			log.Printf("reservation: reclaim of %d expired hold(s) failed: %v", len(expired), err)
		}
	}

	if len(unavailable) > 0 {
		return nil, &ConflictError{
			Msg:   fmt.Sprintf("%d seat(s) are no longer available", len(unavailable)),
			Seats: unavailable,
		}
	}

	// Truncate to microseconds to match DATETIME(6) precision.  The
	// exact value doubles as the rollback key for this attempt, so it
	// must be fine-grained enough that concurrent attempts never share
	// one.
	until := now.Add(s.holdTTL).Truncate(time.Microsecond)
	affected, err := s.seats.ReserveAvailable(ctx, showID, ids, until)
	if err != nil {
		return nil, &InternalError{Op: "reserve seats", Err: err}
	}
	if affected != int64(len(ids)) {
		// Lost a race for at least one seat.  Release whatever subset
		// this call did flip so no partial hold leaks, then report the
		// seats that were just taken.
		if affected > 0 {
			if _, err := s.seats.ReleaseReservedAt(ctx, showID, ids, until); err != nil {
				log.Printf("reservation: rollback of partial hold failed: %v", err)
			}
		}
		return nil, &ConflictError{
			Msg:   fmt.Sprintf("%d seat(s) were just taken by someone else", int64(len(ids))-affected),
			Seats: s.takenSeats(ctx, showID, ids),
		}
	}

	token, err := s.tokens.Mint(showID, ids, until)
	if err != nil {
		// Without a token the hold cannot be finalized; release it
		// rather than leaving the seats dead for ten minutes.
		if _, rbErr := s.seats.ReleaseReservedAt(ctx, showID, ids, until); rbErr != nil {
			log.Printf("reservation: release after token failure failed: %v", rbErr)
		}
		return nil, &InternalError{Op: "mint hold token", Err: err}
	}

	if s.notify != nil {
		s.notify.SeatsChanged(ctx, showID, ids, model.SeatReserved)
	}
	return &Hold{ShowID: showID, SeatIDs: ids, ReservedUntil: until, Token: token}, nil
}

// takenSeats re-reads the requested seats after a lost race and
// returns those that are effectively unavailable now.  Best effort: on
// read failure the conflict is reported without seat identities.
func (s *ReservationService) takenSeats(ctx context.Context, showID uint64, seatIDs []uint64) []SeatRef {
	rows, err := s.seats.SeatsForShow(ctx, showID, seatIDs)
	if err != nil {
		log.Printf("reservation: re-read after lost race failed: %v", err)
		return nil
	}
	now := s.now().UTC()
	taken := make([]SeatRef, 0)
	for _, seat := range rows {
		switch seat.Status {
		case "", model.SeatAvailable:
		case model.SeatReserved:
			if seat.ReservedUntil != nil && seat.ReservedUntil.After(now) {
				taken = append(taken, refOf(seat))
			}
		default:
			taken = append(taken, refOf(seat))
		}
	}
	return taken
}

// dedupe drops zero and repeated IDs while preserving order.
func dedupe(ids []uint64) []uint64 {
	unique := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}
