package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teaterhuset/seat-booking/internal/model"
	"github.com/teaterhuset/seat-booking/internal/queue"
	"github.com/teaterhuset/seat-booking/internal/repository"
)

// BookingStore persists finalized bookings.  CreateWithSeats must
// atomically transition the booking's seats from live-reserved to sold
// and write the booking, or change nothing and return a
// *repository.HoldLapsedError naming the seats that can no longer be
// sold.
type BookingStore interface {
	CreateWithSeats(ctx context.Context, b *model.Booking) error
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
}

// ShowStore looks up shows for validation and event enrichment.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
}

// EventPublisher emits booking.confirmed events to the message broker.
// Publishing is best effort; a broker outage never fails a sale.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// FinalizeRequest carries everything the checkout form collected: the
// hold tuple the client persisted after reserving, the hold token
// proving ownership, and the customer contact details for the booking.
// Payment confirmation happens before this call; the payment
// collaborator invokes Finalize only once payment has been captured.
type FinalizeRequest struct {
	ShowID        uint64
	SeatIDs       []uint64
	HoldToken     string
	CustomerName  string
	CustomerEmail string
}

// BookingService converts live holds into permanent sales and serves
// booking lookups for ticket verification.
type BookingService struct {
	seats    SeatStore
	bookings BookingStore
	shows    ShowStore
	tokens   *HoldTokens
	notify   Notifier
	publish  EventPublisher
	now      func() time.Time
}

// NewBookingService constructs a BookingService.  notify and publish
// may be nil when the corresponding channel is not configured.
func NewBookingService(seats SeatStore, bookings BookingStore, shows ShowStore, tokens *HoldTokens, notify Notifier, publish EventPublisher) *BookingService {
	if seats == nil || bookings == nil || shows == nil || tokens == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		seats:    seats,
		bookings: bookings,
		shows:    shows,
		tokens:   tokens,
		notify:   notify,
		publish:  publish,
		now:      time.Now,
	}
}

// Finalize converts the hold described by req into a booking.  The
// seat transition predicates on current status inside the store, so a
// hold that expired between checkout steps fails with a conflict
// naming the lapsed seats instead of silently selling them.  Either
// every requested seat converts to sold together with the booking
// write, or none do.
func (s *BookingService) Finalize(ctx context.Context, req FinalizeRequest) (*model.Booking, error) {
	if req.ShowID == 0 {
		return nil, &ValidationError{Msg: "show_id is required"}
	}
	if len(req.SeatIDs) == 0 {
		return nil, &ValidationError{Msg: "seat_ids is required"}
	}
	if strings.TrimSpace(req.CustomerName) == "" || strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, &ValidationError{Msg: "customer_name and customer_email are required"}
	}
	if req.HoldToken == "" {
		return nil, &ValidationError{Msg: "hold_token is required"}
	}
	ids := dedupe(req.SeatIDs)
	if len(ids) == 0 {
		return nil, &ValidationError{Msg: "no valid seat IDs provided"}
	}

	claims, err := s.tokens.Verify(req.HoldToken)
	if err != nil {
		if errors.Is(err, ErrHoldTokenExpired) {
			return nil, &ConflictError{Msg: "your hold has expired; please select seats again"}
		}
		return nil, &ValidationError{Msg: "invalid hold token"}
	}
	if claims.ShowID != req.ShowID {
		return nil, &ValidationError{Msg: "hold token does not match the show"}
	}
	if !claims.Covers(ids) {
		return nil, &ValidationError{Msg: "hold token does not cover the requested seats"}
	}

	show, err := s.shows.GetByID(ctx, req.ShowID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return nil, &NotFoundError{Msg: "show not found"}
		}
		return nil, &InternalError{Op: "load show", Err: err}
	}

	rows, err := s.seats.SeatsForShow(ctx, req.ShowID, ids)
	if err != nil {
		return nil, &InternalError{Op: "load seats", Err: err}
	}
	if len(rows) != len(ids) {
		return nil, &NotFoundError{Msg: "some seats do not exist"}
	}

	booking := &model.Booking{
		Reference:     NewReference(),
		ShowID:        req.ShowID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Seats:         make([]model.BookingSeat, 0, len(rows)),
	}
	for _, seat := range rows {
		booking.TotalAmountCents += seat.PriceCents
		booking.Seats = append(booking.Seats, model.BookingSeat{
			SeatID:     seat.ID,
			Section:    seat.Section,
			RowLabel:   seat.RowLabel,
			SeatNumber: seat.SeatNumber,
			PriceCents: seat.PriceCents,
		})
	}

	if err := s.bookings.CreateWithSeats(ctx, booking); err != nil {
		var lapsed *repository.HoldLapsedError
		if errors.As(err, &lapsed) {
			return nil, &ConflictError{
				Msg:   "your hold expired for some seats; please select them again",
				Seats: refsOf(lapsed.Seats),
			}
		}
		return nil, &InternalError{Op: "create booking", Err: err}
	}

	if s.publish != nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:        booking.ID,
			Reference:        booking.Reference,
			ShowID:           show.ID,
			ShowTitle:        show.Title,
			VenueName:        show.VenueName,
			StartsAt:         show.StartsAt.UTC().Format(time.RFC3339),
			SeatLabels:       seatLabels(booking.Seats),
			TotalAmountCents: booking.TotalAmountCents,
			ConfirmedAt:      s.now().UTC().Format(time.RFC3339),
		}
		if err := s.publish.PublishBookingConfirmed(ctx, ev); err != nil {
			log.Printf("booking: publish confirmed event failed: %v", err)
		}
	}
	if s.notify != nil {
		s.notify.SeatsChanged(ctx, req.ShowID, ids, model.SeatSold)
	}
	return booking, nil
}

// ByReference loads a booking for ticket verification.
func (s *BookingService) ByReference(ctx context.Context, reference string) (*model.Booking, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, &ValidationError{Msg: "reference is required"}
	}
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Msg: "booking not found"}
		}
		return nil, &InternalError{Op: "load booking", Err: err}
	}
	return b, nil
}

// NewReference generates a human-readable booking reference such as
// "TB-4F9A0C31D2".  Derived from a random UUID, so collisions are
// practically impossible; the bookings table still carries a unique
// index on the column as a hard guarantee.
func NewReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "TB-" + raw[:10]
}

func seatLabels(seats []model.BookingSeat) []string {
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		labels = append(labels, SeatRef{RowLabel: s.RowLabel, SeatNumber: s.SeatNumber}.Label())
	}
	return labels
}
