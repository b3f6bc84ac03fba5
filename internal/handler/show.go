package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teaterhuset/seat-booking/internal/model"
	"github.com/teaterhuset/seat-booking/internal/repository"
)

// ShowHandler exposes the public availability snapshot the seat-map UI
// renders before a shopper picks seats.
type ShowHandler struct {
	Shows *repository.ShowRepo
	Seats *repository.SeatRepo
}

// NewShowHandler constructs a ShowHandler with the provided repositories.
func NewShowHandler(shows *repository.ShowRepo, seats *repository.SeatRepo) *ShowHandler {
	if shows == nil || seats == nil {
		panic("nil repository passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows, Seats: seats}
}

// GetShowSeats handles GET /v1/shows/:id/seats.  Seats whose
// reservation has lapsed are presented as available even before the
// stored status is corrected; the snapshot is advisory and the
// reservation endpoint remains the authority.
func (h *ShowHandler) GetShowSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	ctx := c.Request().Context()
	show, err := h.Shows.GetByID(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.Seats.ListByShow(ctx, showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	now := time.Now().UTC()
	items := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		items = append(items, echo.Map{
			"seat_id":     s.ID,
			"section":     s.Section,
			"row_label":   s.RowLabel,
			"seat_number": s.SeatNumber,
			"price_cents": s.PriceCents,
			"status":      effectiveStatus(s, now),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":    show.ID,
		"title":      show.Title,
		"venue_name": show.VenueName,
		"starts_at":  show.StartsAt.UTC().Format(time.RFC3339),
		"seats":      items,
	})
}

// effectiveStatus applies lazy expiry for display purposes.
func effectiveStatus(s model.Seat, now time.Time) string {
	switch s.Status {
	case "", model.SeatAvailable:
		return model.SeatAvailable
	case model.SeatReserved:
		if s.ReservedUntil == nil || !s.ReservedUntil.After(now) {
			return model.SeatAvailable
		}
		return model.SeatReserved
	default:
		return s.Status
	}
}
