package repository

import (
	"context"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.Ticket, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error)
	// Update persists status, check-in and lifecycle timestamps.
	Update(ctx context.Context, t *domain.Ticket) error
}

type PGTicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &PGTicketRepository{db: db}
}

const ticketColumns = `id, ticket_code, booking_id, booking_passenger_id, flight_id, seat_id, passenger_name, passenger_email, passenger_phone, document_number,
	base_price, seat_fee, total_price, status, checked_in, checked_in_at, boarding_pass_issued, issued_at, used_at, cancelled_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(&t.ID, &t.Code, &t.BookingID, &t.BookingPassengerID, &t.FlightID, &t.SeatID, &t.PassengerName, &t.PassengerEmail, &t.PassengerPhone, &t.DocumentNumber,
		&t.BasePrice, &t.SeatFee, &t.TotalPrice, &t.Status, &t.CheckedIn, &t.CheckedInAt, &t.BoardingPassIssued, &t.IssuedAt, &t.UsedAt, &t.CancelledAt)
	return t, err
}

func (r *PGTicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO tickets (ticket_code, booking_id, booking_passenger_id, flight_id, seat_id, passenger_name, passenger_email, passenger_phone, document_number,
			base_price, seat_fee, total_price, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		t.Code, t.BookingID, t.BookingPassengerID, t.FlightID, t.SeatID, t.PassengerName, t.PassengerEmail, t.PassengerPhone, t.DocumentNumber,
		t.BasePrice, t.SeatFee, t.TotalPrice, t.Status, t.IssuedAt).Scan(&t.ID)
	return mapError(err, "ticket", t.Code)
}

func (r *PGTicketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	t, err := scanTicket(conn(ctx, r.db).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_code=$1`, code))
	if err != nil {
		return nil, mapError(err, "ticket", code)
	}
	return &t, nil
}

func (r *PGTicketRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Ticket, error) {
	t, err := scanTicket(conn(ctx, r.db).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_code=$1 FOR UPDATE`, code))
	if err != nil {
		return nil, mapError(err, "ticket", code)
	}
	return &t, nil
}

func (r *PGTicketRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGTicketRepository) Update(ctx context.Context, t *domain.Ticket) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE tickets SET status=$1, checked_in=$2, checked_in_at=$3, boarding_pass_issued=$4, used_at=$5, cancelled_at=$6 WHERE id=$7`,
		t.Status, t.CheckedIn, t.CheckedInAt, t.BoardingPassIssued, t.UsedAt, t.CancelledAt, t.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("ticket", t.Code)
	}
	return nil
}

var _ TicketRepository = (*PGTicketRepository)(nil)
