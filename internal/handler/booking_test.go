package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teaterhuset/seat-booking/internal/model"
	"github.com/teaterhuset/seat-booking/internal/service"
)

type stubFinalizer struct {
	booking *model.Booking
	err     error
	gotReq  service.FinalizeRequest
	gotRef  string
}

func (s *stubFinalizer) Finalize(_ context.Context, req service.FinalizeRequest) (*model.Booking, error) {
	s.gotReq = req
	return s.booking, s.err
}

func (s *stubFinalizer) ByReference(_ context.Context, reference string) (*model.Booking, error) {
	s.gotRef = reference
	return s.booking, s.err
}

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:               3,
		Reference:        "TB-4F9A0C31D2",
		ShowID:           7,
		CustomerName:     "Kari Nordmann",
		CustomerEmail:    "kari@example.com",
		TotalAmountCents: 70000,
		CreatedAt:        time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC),
		Seats: []model.BookingSeat{
			{SeatID: 11, Section: "Parkett", RowLabel: "C", SeatNumber: 3, PriceCents: 35000},
			{SeatID: 12, Section: "Parkett", RowLabel: "C", SeatNumber: 4, PriceCents: 35000},
		},
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	stub := &stubFinalizer{booking: sampleBooking()}
	h := NewBookingHandler(stub)

	body := `{"show_id":7,"seat_ids":[11,12],"hold_token":"tok","customer_name":"Kari Nordmann","customer_email":"kari@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CreateBooking(echo.New().NewContext(req, rec)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint64(7), stub.gotReq.ShowID)
	assert.Equal(t, []uint64{11, 12}, stub.gotReq.SeatIDs)
	assert.Equal(t, "tok", stub.gotReq.HoldToken)

	got := decodeBody(t, rec)
	booking, ok := got["booking"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TB-4F9A0C31D2", booking["reference"])
	assert.Equal(t, float64(70000), booking["total_amount_cents"])
}

func TestCreateBookingLapsedHoldConflict(t *testing.T) {
	stub := &stubFinalizer{err: &service.ConflictError{
		Msg:   "your hold expired for some seats; please select them again",
		Seats: []service.SeatRef{{SeatID: 12, Section: "Parkett", RowLabel: "C", SeatNumber: 4}},
	}}
	h := NewBookingHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{"show_id":7,"seat_ids":[12]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CreateBooking(echo.New().NewContext(req, rec)))

	require.Equal(t, http.StatusConflict, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, []interface{}{float64(12)}, got["unavailable_seat_ids"])
}

func TestGetBookingByReference(t *testing.T) {
	stub := &stubFinalizer{booking: sampleBooking()}
	h := NewBookingHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetPath("/v1/bookings/:reference")
	c.SetParamNames("reference")
	c.SetParamValues("TB-4F9A0C31D2")
	require.NoError(t, h.GetBooking(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TB-4F9A0C31D2", stub.gotRef)
}

func TestGetBookingUnknownReference(t *testing.T) {
	stub := &stubFinalizer{err: &service.NotFoundError{Msg: "booking not found"}}
	h := NewBookingHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetPath("/v1/bookings/:reference")
	c.SetParamNames("reference")
	c.SetParamValues("TB-NOPE000000")
	require.NoError(t, h.GetBooking(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "booking not found", got["error"])
}
