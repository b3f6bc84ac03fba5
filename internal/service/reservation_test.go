package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teaterhuset/seat-booking/internal/model"
)

// fakeSeatStore is an in-memory SeatStore with the same conditional
// semantics as the SQL implementation: every mutation checks current
// status under a single lock and reports how many rows it changed.
type fakeSeatStore struct {
	mu    sync.Mutex
	seats map[uint64]model.Seat
	calls int // total store accesses, for "no store access" assertions

	beforeReserve     func() // runs before the conditional commit, simulating a racing shopper
	releaseExpiredErr error
}

func newFakeSeatStore(seats ...model.Seat) *fakeSeatStore {
	m := make(map[uint64]model.Seat, len(seats))
	for _, s := range seats {
		m[s.ID] = s
	}
	return &fakeSeatStore{seats: m}
}

func (f *fakeSeatStore) SeatsForShow(_ context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		if s, ok := f.seats[id]; ok && s.ShowID == showID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeatStore) ReserveAvailable(_ context.Context, showID uint64, seatIDs []uint64, until time.Time) (int64, error) {
	if f.beforeReserve != nil {
		f.beforeReserve()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var affected int64
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok || s.ShowID != showID || s.Status != model.SeatAvailable {
			continue
		}
		u := until.UTC()
		s.Status = model.SeatReserved
		s.ReservedUntil = &u
		f.seats[id] = s
		affected++
	}
	return affected, nil
}

func (f *fakeSeatStore) ReleaseReservedAt(_ context.Context, showID uint64, seatIDs []uint64, until time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var affected int64
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok || s.ShowID != showID || s.Status != model.SeatReserved {
			continue
		}
		if s.ReservedUntil == nil || !s.ReservedUntil.Equal(until.UTC()) {
			continue
		}
		s.Status = model.SeatAvailable
		s.ReservedUntil = nil
		f.seats[id] = s
		affected++
	}
	return affected, nil
}

func (f *fakeSeatStore) ReleaseExpired(_ context.Context, showID uint64, seatIDs []uint64) (int64, error) {
	if f.releaseExpiredErr != nil {
		return 0, f.releaseExpiredErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	now := time.Now().UTC()
	var affected int64
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok || s.ShowID != showID || s.Status != model.SeatReserved {
			continue
		}
		if s.ReservedUntil != nil && s.ReservedUntil.After(now) {
			continue
		}
		s.Status = model.SeatAvailable
		s.ReservedUntil = nil
		f.seats[id] = s
		affected++
	}
	return affected, nil
}

// seatAt returns a copy of the stored seat row.
func (f *fakeSeatStore) seatAt(id uint64) model.Seat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[id]
}

// setSeat replaces a stored seat row, bypassing conditional checks.
func (f *fakeSeatStore) setSeat(s model.Seat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seats[s.ID] = s
}

const testShowID = uint64(7)

func availableSeat(id uint64, row string, num uint32) model.Seat {
	return model.Seat{
		ID:         id,
		ShowID:     testShowID,
		Section:    "Parkett",
		RowLabel:   row,
		SeatNumber: num,
		PriceCents: 35000,
		Status:     model.SeatAvailable,
	}
}

func newTestReservationService(store SeatStore) *ReservationService {
	return NewReservationService(store, NewHoldTokens("test-secret"), nil, 10*time.Minute)
}

func TestReserveValidatesInputWithoutStoreAccess(t *testing.T) {
	store := newFakeSeatStore(availableSeat(1, "A", 1))
	svc := newTestReservationService(store)

	_, err := svc.Reserve(context.Background(), testShowID, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.Reserve(context.Background(), 0, []uint64{1})
	require.ErrorAs(t, err, &ve)

	_, err = svc.Reserve(context.Background(), testShowID, []uint64{0})
	require.ErrorAs(t, err, &ve)

	assert.Equal(t, 0, store.calls, "validation failures must not touch the store")
}

func TestReserveUnknownSeatsFailWithNotFound(t *testing.T) {
	store := newFakeSeatStore(availableSeat(1, "A", 1))
	svc := newTestReservationService(store)

	_, err := svc.Reserve(context.Background(), testShowID, []uint64{1, 99})
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)

	// Seats belonging to another show are just as absent.
	other := availableSeat(2, "A", 2)
	other.ShowID = testShowID + 1
	store.setSeat(other)
	_, err = svc.Reserve(context.Background(), testShowID, []uint64{1, 2})
	require.ErrorAs(t, err, &nfe)

	assert.Equal(t, model.SeatAvailable, store.seatAt(1).Status, "no seat may be mutated on the not-found path")
}

func TestReserveSuccessHoldsEverySeat(t *testing.T) {
	store := newFakeSeatStore(availableSeat(1, "A", 1), availableSeat(2, "A", 2))
	svc := newTestReservationService(store)

	start := time.Now().UTC()
	hold, err := svc.Reserve(context.Background(), testShowID, []uint64{1, 2, 2})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2}, hold.SeatIDs, "duplicate IDs collapse to one hold")
	assert.NotEmpty(t, hold.Token)
	assert.WithinDuration(t, start.Add(10*time.Minute), hold.ReservedUntil, 2*time.Second)

	for _, id := range []uint64{1, 2} {
		s := store.seatAt(id)
		assert.Equal(t, model.SeatReserved, s.Status)
		require.NotNil(t, s.ReservedUntil)
		assert.True(t, s.ReservedUntil.Equal(hold.ReservedUntil))
	}
}

func TestReserveConflictNamesOnlyUnavailableSeats(t *testing.T) {
	// Scenario: X holds A1+A2, Y asks for A2+A3. Y must be told about
	// A2 only, and A3 must remain reservable by a third caller.
	store := newFakeSeatStore(availableSeat(1, "A", 1), availableSeat(2, "A", 2), availableSeat(3, "A", 3))
	svc := newTestReservationService(store)

	_, err := svc.Reserve(context.Background(), testShowID, []uint64{1, 2})
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), testShowID, []uint64{2, 3})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Seats, 1)
	assert.Equal(t, uint64(2), ce.Seats[0].SeatID)
	assert.Equal(t, "Row A, Seat 2", ce.Seats[0].Label())

	assert.Equal(t, model.SeatAvailable, store.seatAt(3).Status)
	_, err = svc.Reserve(context.Background(), testShowID, []uint64{3})
	require.NoError(t, err)
}

func TestReserveReclaimsLapsedHold(t *testing.T) {
	// Scenario: B1 carries a hold that expired five minutes ago. A new
	// caller gets the seat with a fresh ten-minute window.
	past := time.Now().UTC().Add(-5 * time.Minute)
	stale := availableSeat(1, "B", 1)
	stale.Status = model.SeatReserved
	stale.ReservedUntil = &past
	store := newFakeSeatStore(stale)
	svc := newTestReservationService(store)

	hold, err := svc.Reserve(context.Background(), testShowID, []uint64{1})
	require.NoError(t, err)

	s := store.seatAt(1)
	assert.Equal(t, model.SeatReserved, s.Status)
	require.NotNil(t, s.ReservedUntil)
	assert.True(t, s.ReservedUntil.After(time.Now().UTC().Add(9*time.Minute)), "expiry must be a fresh window, not the stale one")
	assert.True(t, s.ReservedUntil.Equal(hold.ReservedUntil))
}

func TestReserveTreatsNullExpiryAsLapsed(t *testing.T) {
	// A reserved seat without an expiry is an inconsistent row; it must
	// be treated as available rather than locked forever.
	broken := availableSeat(1, "B", 2)
	broken.Status = model.SeatReserved
	broken.ReservedUntil = nil
	store := newFakeSeatStore(broken)
	svc := newTestReservationService(store)

	_, err := svc.Reserve(context.Background(), testShowID, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, model.SeatReserved, store.seatAt(1).Status)
}

func TestReserveConflictIsIdempotent(t *testing.T) {
	sold := availableSeat(1, "C", 1)
	sold.Status = model.SeatSold
	store := newFakeSeatStore(sold)
	svc := newTestReservationService(store)

	for i := 0; i < 2; i++ {
		_, err := svc.Reserve(context.Background(), testShowID, []uint64{1})
		var ce *ConflictError
		require.ErrorAs(t, err, &ce, "attempt %d", i+1)
		assert.Equal(t, model.SeatSold, store.seatAt(1).Status)
	}
}

func TestReserveLostRaceRollsBackPartialHold(t *testing.T) {
	store := newFakeSeatStore(availableSeat(1, "A", 1), availableSeat(2, "A", 2))
	svc := newTestReservationService(store)

	// A competing shopper grabs seat 2 between our snapshot and the
	// conditional commit.
	store.beforeReserve = func() {
		future := time.Now().UTC().Add(10 * time.Minute)
		s := store.seatAt(2)
		s.Status = model.SeatReserved
		s.ReservedUntil = &future
		store.setSeat(s)
		store.beforeReserve = nil
	}

	_, err := svc.Reserve(context.Background(), testShowID, []uint64{1, 2})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Seats, 1)
	assert.Equal(t, uint64(2), ce.Seats[0].SeatID)

	// All-or-nothing: the seat this call did manage to flip is released.
	assert.Equal(t, model.SeatAvailable, store.seatAt(1).Status)
	assert.Nil(t, store.seatAt(1).ReservedUntil)
	// The competitor's hold is untouched.
	assert.Equal(t, model.SeatReserved, store.seatAt(2).Status)
}

func TestReserveContinuesWhenReclaimFails(t *testing.T) {
	// A failed expiry cleanup must not abort the attempt; the stale row
	// simply does not match the conditional commit and surfaces as a
	// lost race, with any partial hold rolled back.
	past := time.Now().UTC().Add(-time.Minute)
	stale := availableSeat(1, "D", 1)
	stale.Status = model.SeatReserved
	stale.ReservedUntil = &past
	store := newFakeSeatStore(stale, availableSeat(2, "D", 2))
	store.releaseExpiredErr = assert.AnError
	svc := newTestReservationService(store)

	_, err := svc.Reserve(context.Background(), testShowID, []uint64{1, 2})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.SeatAvailable, store.seatAt(2).Status, "partial hold must be rolled back")
}

func TestReserveMutualExclusionUnderConcurrency(t *testing.T) {
	for i := 0; i < 50; i++ {
		store := newFakeSeatStore(availableSeat(1, "A", 1), availableSeat(2, "A", 2), availableSeat(3, "A", 3))
		svc := newTestReservationService(store)

		type result struct {
			hold *Hold
			err  error
		}
		results := make([]result, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h, err := svc.Reserve(context.Background(), testShowID, []uint64{1, 2})
			results[0] = result{h, err}
		}()
		go func() {
			defer wg.Done()
			h, err := svc.Reserve(context.Background(), testShowID, []uint64{2, 3})
			results[1] = result{h, err}
		}()
		wg.Wait()

		successes := 0
		for _, r := range results {
			if r.err == nil {
				successes++
			} else {
				var ce *ConflictError
				require.ErrorAs(t, r.err, &ce)
			}
		}
		require.Equal(t, 1, successes, "exactly one of two overlapping requests may win")

		// The contested seat belongs to the winner; the loser's other
		// seat was rolled back to available.
		assert.Equal(t, model.SeatReserved, store.seatAt(2).Status)
		if results[0].err == nil {
			assert.Equal(t, model.SeatAvailable, store.seatAt(3).Status)
		} else {
			assert.Equal(t, model.SeatAvailable, store.seatAt(1).Status)
		}
	}
}
