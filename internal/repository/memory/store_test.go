package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func seedSeats(t *testing.T, s *Store) (domain.Flight, []domain.Seat) {
	t.Helper()
	ctx := context.Background()
	flight := s.AddFlight(domain.Flight{FlightNumber: "SP101", FromAirport: "HAN", ToAirport: "SGN", DepartureTime: now.Add(48 * time.Hour), TotalSeats: 168, BasePrice: 1000000})
	require.NoError(t, s.Seats().CreateLayout(ctx, domain.DefaultSeatLayout().Seats(flight.ID)))
	seats, err := s.Seats().ListByFlight(ctx, flight.ID)
	require.NoError(t, err)
	return flight, seats
}

func TestStore_CreateLayoutIsIdempotent(t *testing.T) {
	s := NewStore()
	flight, seats := seedSeats(t, s)
	require.Len(t, seats, 168)

	require.NoError(t, s.Seats().CreateLayout(context.Background(), domain.DefaultSeatLayout().Seats(flight.ID)))
	again, err := s.Seats().ListByFlight(context.Background(), flight.ID)
	require.NoError(t, err)
	assert.Equal(t, seats, again)
}

func TestStore_HoldIsCompareAndSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, seats := seedSeats(t, s)
	seat := seats[0]

	ok, err := s.Seats().Hold(ctx, seat.ID, 1, now, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Seats().Hold(ctx, seat.ID, 2, now.Add(time.Minute), now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "another user must not take a live hold")

	ok, err = s.Seats().Hold(ctx, seat.ID, 1, now.Add(time.Minute), now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "holder may extend its own hold")

	ok, err = s.Seats().Hold(ctx, seat.ID, 2, now.Add(6*time.Minute), now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "expired hold is free to take")
}

func TestStore_ReleaseHoldsFilters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	flight, seats := seedSeats(t, s)

	for _, seat := range seats[:3] {
		_, err := s.Seats().Hold(ctx, seat.ID, 1, now, now.Add(time.Minute))
		require.NoError(t, err)
	}
	_, err := s.Seats().Hold(ctx, seats[3].ID, 2, now, now.Add(time.Minute))
	require.NoError(t, err)

	released, err := s.Seats().ReleaseHolds(ctx, repository.HoldFilter{UserID: 1, SeatIDs: []int64{seats[0].ID, seats[3].ID}}, now)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, seats[0].ID, released[0].ID)

	released, err = s.Seats().ReleaseHolds(ctx, repository.HoldFilter{UserID: 1, FlightID: flight.ID, ExcludeSeatIDs: []int64{seats[1].ID}}, now)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, seats[2].ID, released[0].ID)

	other, err := s.Seats().GetByID(ctx, seats[3].ID)
	require.NoError(t, err)
	assert.True(t, other.HeldBy(2))
}

func TestStore_ReleaseExpired(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, seats := seedSeats(t, s)

	_, err := s.Seats().Hold(ctx, seats[0].ID, 1, now, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = s.Seats().Hold(ctx, seats[1].ID, 1, now, now.Add(10*time.Minute))
	require.NoError(t, err)

	released, err := s.Seats().ReleaseExpired(ctx, 0, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, seats[0].ID, released[0].ID)
	assert.Equal(t, domain.SeatStatusAvailable, released[0].Status)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, seats := seedSeats(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.Seats().Hold(ctx, seats[0].ID, 1, now, now.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	seat, err := s.Seats().GetByID(ctx, seats[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatStatusAvailable, seat.Status)
}

func TestStore_BookingCodeUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	flight, _ := seedSeats(t, s)

	p := &domain.Passenger{FirstName: "An", LastName: "Nguyen", CreatedAt: now}
	require.NoError(t, s.Passengers().Create(ctx, p))

	b := &domain.Booking{Code: "SP202600001", TripType: domain.TripTypeOneWay, FareClass: domain.FareClassEconomy, OutboundFlightID: flight.ID,
		Status: domain.BookingStatusPending, CreatedAt: now, Passengers: []domain.BookingPassenger{{PassengerID: p.ID}}}
	require.NoError(t, s.Bookings().Create(ctx, b))
	assert.NotZero(t, b.Passengers[0].ID)

	dup := &domain.Booking{Code: "SP202600001", OutboundFlightID: flight.ID, CreatedAt: now}
	assert.True(t, domain.IsIntegrity(s.Bookings().Create(ctx, dup)))

	got, err := s.Bookings().GetByCode(ctx, "SP202600001")
	require.NoError(t, err)
	assert.Len(t, got.Passengers, 1)
}

func TestStore_FlightCounterBounds(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	flight := s.AddFlight(domain.Flight{TotalSeats: 1})

	require.NoError(t, s.Flights().ReserveSeat(ctx, flight.ID))
	require.NoError(t, s.Flights().ReserveSeat(ctx, flight.ID))
	got, _ := s.Flights().GetByID(ctx, flight.ID)
	assert.Equal(t, 0, got.AvailableSeats)

	require.NoError(t, s.Flights().ReleaseSeat(ctx, flight.ID))
	require.NoError(t, s.Flights().ReleaseSeat(ctx, flight.ID))
	got, _ = s.Flights().GetByID(ctx, flight.ID)
	assert.Equal(t, 1, got.AvailableSeats)

	assert.True(t, domain.IsNotFound(s.Flights().ReserveSeat(ctx, 999)))
}
