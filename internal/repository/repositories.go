package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories bundles every store behind one transactor.
type Repositories struct {
	Tx         Transactor
	Flights    FlightRepository
	Seats      SeatRepository
	Bookings   BookingRepository
	Passengers PassengerRepository
	Payments   PaymentRepository
	Tickets    TicketRepository
}

func NewPGRepositories(db *pgxpool.Pool) Repositories {
	return Repositories{
		Tx:         NewTransactor(db),
		Flights:    NewFlightRepository(db),
		Seats:      NewSeatRepository(db),
		Bookings:   NewBookingRepository(db),
		Passengers: NewPassengerRepository(db),
		Payments:   NewPaymentRepository(db),
		Tickets:    NewTicketRepository(db),
	}
}
