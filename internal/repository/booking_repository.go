package repository

import (
	"context"
	"database/sql"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// BookingRepo provides access to the bookings and booking_seats
// tables.  Finalizing a hold and recording the booking happen inside a
// single transaction so a booking row can never reference seats that
// were not actually transitioned to sold.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateWithSeats converts a live hold into a sale.  Within one
// transaction it conditionally updates the booking's seats from
// reserved (and not yet expired) to sold, verifies that every seat was
// updated, and inserts the booking and booking_seats rows.  The seat
// update predicates on current status rather than any earlier read, so
// a hold that lapsed between checkout steps can never be silently
// sold.
//
// When any seat cannot be sold the transaction is rolled back and a
// HoldLapsedError is returned naming the seats that require
// re-selection; the booking is not created and no seat changes
// persist.  On success the booking's ID and CreatedAt are populated.
func (r *BookingRepo) CreateWithSeats(ctx context.Context, b *model.Booking) error {
	seatIDs := make([]uint64, 0, len(b.Seats))
	for _, s := range b.Seats {
		seatIDs = append(seatIDs, s.SeatID)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Conditional transition reserved -> sold.  The reserved_until
	// predicate is the authoritative expiry check: a lapsed hold no
	// longer matches even if its stored status still says reserved.
	sell := `UPDATE seats SET status = 'sold', reserved_until = NULL
	         WHERE show_id = ? AND status = 'reserved' AND reserved_until > UTC_TIMESTAMP()
	           AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, b.ShowID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, sell, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(seatIDs)) {
		// Roll back the partial transition, then report which of the
		// requested seats are no longer held so the customer can
		// re-select exactly those.  The deferred rollback becomes a
		// no-op.
		if err := tx.Rollback(); err != nil {
			return err
		}
		lapsed, err := r.lapsedSeats(ctx, b.ShowID, seatIDs)
		if err != nil {
			return err
		}
		return &HoldLapsedError{Seats: lapsed}
	}

	const ins = `INSERT INTO bookings (reference, show_id, customer_name, customer_email, total_amount_cents)
	             VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, ins, b.Reference, b.ShowID, b.CustomerName, b.CustomerEmail, b.TotalAmountCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Seats) > 0 {
		query := `INSERT INTO booking_seats (booking_id, show_id, seat_id, price_cents) VALUES `
		sargs := make([]interface{}, 0, len(b.Seats)*4)
		for i, s := range b.Seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			sargs = append(sargs, b.ID, b.ShowID, s.SeatID, s.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, query, sargs...); err != nil {
			return err
		}
	}

	// Query back the created_at populated by the database default.
	const sel = `SELECT created_at FROM bookings WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// lapsedSeats returns the subset of the given seats that are no longer
// under a live reservation.  It runs outside the finalize transaction,
// after rollback, so the caller's own partial updates are not visible.
func (r *BookingRepo) lapsedSeats(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error) {
	query := `SELECT id, show_id, section, row_label, seat_number, price_cents, status, reserved_until
	          FROM seats
	          WHERE show_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
	            AND NOT (status = 'reserved' AND reserved_until > UTC_TIMESTAMP())
	          ORDER BY section, row_label, seat_number`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// GetByReference loads a booking and its seats by reference code.  It
// backs ticket verification at the door: scanning a ticket's QR code
// resolves to this lookup.  sql.ErrNoRows is returned when no booking
// carries the reference.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	const q = `SELECT id, reference, show_id, customer_name, customer_email, total_amount_cents, created_at
	           FROM bookings
	           WHERE reference = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, reference).Scan(
		&b.ID, &b.Reference, &b.ShowID, &b.CustomerName, &b.CustomerEmail, &b.TotalAmountCents, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	const seatQ = `SELECT bs.seat_id, se.section, se.row_label, se.seat_number, bs.price_cents
	               FROM booking_seats bs
	               JOIN seats se ON se.id = bs.seat_id
	               WHERE bs.booking_id = ?
	               ORDER BY se.section, se.row_label, se.seat_number`
	rows, err := r.db.QueryContext(ctx, seatQ, b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	b.Seats = make([]model.BookingSeat, 0)
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.SeatID, &s.Section, &s.RowLabel, &s.SeatNumber, &s.PriceCents); err != nil {
			return nil, err
		}
		b.Seats = append(b.Seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}
