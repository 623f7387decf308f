// Package memory is an in-process implementation of the repository
// interfaces. One mutex guards all tables; WithTx holds it for the whole
// callback and rolls the tables back if the callback fails.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/repository"
)

type tables struct {
	flights           map[int64]domain.Flight
	seats             map[int64]domain.Seat
	bookings          map[int64]domain.Booking
	bookingPassengers map[int64]domain.BookingPassenger
	passengers        map[int64]domain.Passenger
	payments          map[int64]domain.Payment
	tickets           map[int64]domain.Ticket
	lastID            int64
}

func newTables() *tables {
	return &tables{
		flights:           make(map[int64]domain.Flight),
		seats:             make(map[int64]domain.Seat),
		bookings:          make(map[int64]domain.Booking),
		bookingPassengers: make(map[int64]domain.BookingPassenger),
		passengers:        make(map[int64]domain.Passenger),
		payments:          make(map[int64]domain.Payment),
		tickets:           make(map[int64]domain.Ticket),
	}
}

// clone copies every table. Rows are stored by value and pointer fields are
// replaced rather than mutated, so a shallow copy per map is enough.
func (t *tables) clone() *tables {
	return &tables{
		flights:           maps.Clone(t.flights),
		seats:             maps.Clone(t.seats),
		bookings:          maps.Clone(t.bookings),
		bookingPassengers: maps.Clone(t.bookingPassengers),
		passengers:        maps.Clone(t.passengers),
		payments:          maps.Clone(t.payments),
		tickets:           maps.Clone(t.tickets),
		lastID:            t.lastID,
	}
}

func (t *tables) nextID() int64 {
	t.lastID++
	return t.lastID
}

type Store struct {
	mu   sync.Mutex
	data *tables
}

func NewStore() *Store {
	return &Store{data: newTables()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store unless ctx already belongs to one of its transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// AddFlight seeds a flight and returns it with its assigned id.
func (s *Store) AddFlight(f domain.Flight) domain.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.data.nextID()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	f.UpdatedAt = f.CreatedAt
	if f.AvailableSeats == 0 {
		f.AvailableSeats = f.TotalSeats
	}
	s.data.flights[f.ID] = f
	return f
}

func (s *Store) Flights() repository.FlightRepository       { return &flightRepo{s: s} }
func (s *Store) Seats() repository.SeatRepository           { return &seatRepo{s: s} }
func (s *Store) Bookings() repository.BookingRepository     { return &bookingRepo{s: s} }
func (s *Store) Passengers() repository.PassengerRepository { return &passengerRepo{s: s} }
func (s *Store) Payments() repository.PaymentRepository     { return &paymentRepo{s: s} }
func (s *Store) Tickets() repository.TicketRepository       { return &ticketRepo{s: s} }

var _ repository.Transactor = (*Store)(nil)

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Tx:         s,
		Flights:    s.Flights(),
		Seats:      s.Seats(),
		Bookings:   s.Bookings(),
		Passengers: s.Passengers(),
		Payments:   s.Payments(),
		Tickets:    s.Tickets(),
	}
}
