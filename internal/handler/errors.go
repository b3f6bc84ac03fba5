package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teaterhuset/seat-booking/internal/service"
)

// writeServiceError translates the service error taxonomy into the
// HTTP contract: 400 for validation and dangling references, 409 for
// conflicts (with the affected seats so the UI can deselect exactly
// those), 500 for everything else.  Internal causes are logged but
// never leaked to clients.
func writeServiceError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	}
	var nfe *service.NotFoundError
	if errors.As(err, &nfe) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": nfe.Msg})
	}
	var ce *service.ConflictError
	if errors.As(err, &ce) {
		ids := make([]uint64, 0, len(ce.Seats))
		for _, s := range ce.Seats {
			ids = append(ids, s.SeatID)
		}
		return c.JSON(http.StatusConflict, echo.Map{
			"error":                ce.Msg,
			"unavailable_seat_ids": ids,
			"unavailable_seats":    ce.Seats,
		})
	}
	log.Printf("handler: internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
