package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// dbTimeLayout is the DATETIME(6) format used when writing and matching
// reserved_until values.  Formatting explicitly (rather than relying on
// driver conversion) guarantees that a timestamp written by
// ReserveAvailable compares equal in ReleaseReservedAt's predicate;
// microsecond precision keeps concurrent attempts from sharing a value.
const dbTimeLayout = "2006-01-02 15:04:05.000000"

// SeatRepo provides access to the seats table.  It deliberately
// exposes only conditional mutations: every UPDATE re-asserts the
// expected current status in its WHERE clause and reports the number
// of rows affected, which is the sole mutual-exclusion mechanism
// between concurrent shoppers.  All timestamps are stored in UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// SeatsForShow returns the current rows for the requested seat IDs
// scoped to the show.  Callers compare the returned count against the
// requested count to detect references to seats that do not exist or
// belong to a different show.  Passing an empty slice returns an empty
// result without querying.
func (r *SeatRepo) SeatsForShow(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return []model.Seat{}, nil
	}
	query := `SELECT id, show_id, section, row_label, seat_number, price_cents, status, reserved_until
	          FROM seats
	          WHERE show_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
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

// ListByShow returns every seat belonging to the show, ordered for
// deterministic seat-map rendering.
func (r *SeatRepo) ListByShow(ctx context.Context, showID uint64) ([]model.Seat, error) {
	const q = `SELECT id, show_id, section, row_label, seat_number, price_cents, status, reserved_until
	           FROM seats
	           WHERE show_id = ?
	           ORDER BY section, row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// ReserveAvailable attempts to place a hold on the given seats by
// flipping them from available to reserved with the supplied expiry.
// The WHERE clause re-asserts status = 'available' so a concurrent
// caller racing between snapshot and commit cannot also succeed on the
// same seat.  It returns the number of rows actually updated; callers
// must compare it against len(seatIDs) and roll back a partial hold
// via ReleaseReservedAt.
func (r *SeatRepo) ReserveAvailable(ctx context.Context, showID uint64, seatIDs []uint64, until time.Time) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = 'reserved', reserved_until = ?
	          WHERE show_id = ? AND status = 'available' AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, until.UTC().Format(dbTimeLayout), showID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseReservedAt undoes the subset of a hold that this caller
// managed to place when the full hold could not be secured.  Matching
// on the exact reserved_until written by the failed attempt ensures
// only rows flipped by that attempt are released, never a competing
// shopper's hold.
func (r *SeatRepo) ReleaseReservedAt(ctx context.Context, showID uint64, seatIDs []uint64, until time.Time) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = 'available', reserved_until = NULL
	          WHERE show_id = ? AND status = 'reserved' AND reserved_until = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, showID, until.UTC().Format(dbTimeLayout))
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseExpired resets seats whose hold has lapsed back to available.
// The expiry comparison happens in the database against
// UTC_TIMESTAMP() so a hold that is alive at call time is never
// touched, even if the caller's clock drifts.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, showID uint64, seatIDs []uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = 'available', reserved_until = NULL
	          WHERE show_id = ? AND status = 'reserved'
	            AND (reserved_until IS NULL OR reserved_until <= UTC_TIMESTAMP())
	            AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// placeholders returns a comma-separated list of n SQL placeholders.
func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "?"
	}
	return strings.Join(ps, ",")
}

// scanSeats reads seat rows from a result set.  A NULL status is
// preserved as the empty string; business logic treats it as
// available.
func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		var status sql.NullString
		var reservedUntil sql.NullTime
		if err := rows.Scan(&s.ID, &s.ShowID, &s.Section, &s.RowLabel, &s.SeatNumber, &s.PriceCents, &status, &reservedUntil); err != nil {
			return nil, err
		}
		s.Status = status.String
		if reservedUntil.Valid {
			t := reservedUntil.Time.UTC()
			s.ReservedUntil = &t
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}
