package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teaterhuset/seat-booking/internal/service"
)

// Reserver is the part of the reservation service the handler needs.
type Reserver interface {
	Reserve(ctx context.Context, showID uint64, seatIDs []uint64) (*service.Hold, error)
}

// ReservationHandler exposes the seat reservation endpoint.  All
// availability decisions and mutual exclusion live in the service; the
// handler only binds input and shapes responses.
type ReservationHandler struct {
	svc Reserver
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc Reserver) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

// ReserveSeats handles POST /v1/seats/reserve.  The body must carry a
// show_id and a non-empty seat_ids array.  On success it returns the
// hold expiry, the reserved seat IDs and the hold token the client
// must present at checkout.  Unavailable seats yield 409 with the
// affected seats enumerated; bad input and unknown seats yield 400.
func (h *ReservationHandler) ReserveSeats(c echo.Context) error {
	var body struct {
		ShowID  uint64   `json:"show_id"`
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	hold, err := h.svc.Reserve(c.Request().Context(), body.ShowID, body.SeatIDs)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"show_id":        hold.ShowID,
		"seat_ids":       hold.SeatIDs,
		"reserved_until": hold.ReservedUntil.UTC().Format(time.RFC3339),
		"hold_token":     hold.Token,
	})
}
