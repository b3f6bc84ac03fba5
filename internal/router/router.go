package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/teaterhuset/seat-booking/internal/handler" // import the handlers that implement the endpoints
)

// RegisterRoutes registers routes that do not belong to the versioned
// API.  Currently it exposes only a health check used by load
// balancers and monitoring to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the public v1 endpoints: the availability
// snapshot, the seat reservation endpoint (rate limited, since it is
// the write-heavy path during on-sales), checkout finalization and
// ticket lookup.  None of these require authentication; hold ownership
// is proven by the hold token rather than a session.
func RegisterAPI(e *echo.Echo, shows *handler.ShowHandler, res *handler.ReservationHandler, bk *handler.BookingHandler, reserveLimit echo.MiddlewareFunc) {
	v1 := e.Group("/v1")
	// Seat-map snapshot for browsing, advisory only.
	v1.GET("/shows/:id/seats", shows.GetShowSeats)
	// The core reservation protocol lives behind this endpoint.
	if reserveLimit != nil {
		v1.POST("/seats/reserve", res.ReserveSeats, reserveLimit)
	} else {
		v1.POST("/seats/reserve", res.ReserveSeats)
	}
	// Called after payment confirmation to convert the hold to a sale.
	v1.POST("/bookings", bk.CreateBooking)
	// Ticket verification lookup used by door-scanning clients.
	v1.GET("/bookings/:reference", bk.GetBooking)
}
