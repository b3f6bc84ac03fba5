package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// ShowRepo provides read access to the shows table.  Shows are
// created and managed by administrative tooling outside this service;
// here they are only looked up to validate requests and to enrich
// availability listings and booking events.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo returns a new ShowRepo bound to the given database.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// GetByID returns the show with the given ID or ErrShowNotFound.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	const q = `SELECT id, title, venue_name, starts_at FROM shows WHERE id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Title, &s.VenueName, &s.StartsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	s.StartsAt = s.StartsAt.UTC()
	return &s, nil
}
