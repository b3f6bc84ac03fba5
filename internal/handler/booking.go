package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teaterhuset/seat-booking/internal/model"
	"github.com/teaterhuset/seat-booking/internal/service"
)

// Finalizer is the part of the booking service the handler needs.
type Finalizer interface {
	Finalize(ctx context.Context, req service.FinalizeRequest) (*model.Booking, error)
	ByReference(ctx context.Context, reference string) (*model.Booking, error)
}

// BookingHandler exposes checkout finalization and ticket lookup.
type BookingHandler struct {
	svc Finalizer
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc Finalizer) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

// CreateBooking handles POST /v1/bookings.  It is called once payment
// has been confirmed and converts the client's hold into a booking.
// A lapsed hold yields 409 naming the seats requiring re-selection,
// so the customer re-picks only those instead of losing the cart.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var body struct {
		ShowID        uint64   `json:"show_id"`
		SeatIDs       []uint64 `json:"seat_ids"`
		HoldToken     string   `json:"hold_token"`
		CustomerName  string   `json:"customer_name"`
		CustomerEmail string   `json:"customer_email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	booking, err := h.svc.Finalize(c.Request().Context(), service.FinalizeRequest{
		ShowID:        body.ShowID,
		SeatIDs:       body.SeatIDs,
		HoldToken:     body.HoldToken,
		CustomerName:  body.CustomerName,
		CustomerEmail: body.CustomerEmail,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": booking})
}

// GetBooking handles GET /v1/bookings/:reference.  Door staff scan a
// ticket's QR code, which resolves to this lookup.  Unknown references
// return 404.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.svc.ByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		var nfe *service.NotFoundError
		if errors.As(err, &nfe) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": nfe.Msg})
		}
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}
