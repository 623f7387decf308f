package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	// Create inserts the booking and its passenger links. Call it inside
	// Transactor.WithTx so both land together.
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	// UpdateStatus sets the status; a non-nil confirmedAt is stamped as well.
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, confirmedAt *time.Time, now time.Time) error
	SetOwner(ctx context.Context, id, userID int64, now time.Time) error
	AssignSeat(ctx context.Context, bookingPassengerID, seatID int64, seatNumber string) error
	// ExpirePendingBefore moves PENDING bookings created at or before deadline to EXPIRED.
	ExpirePendingBefore(ctx context.Context, deadline, now time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, booking_code, user_id, trip_type, fare_class, outbound_flight_id, inbound_flight_id, total_amount, status, contact_email, created_at, confirmed_at, updated_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.Code, &b.UserID, &b.TripType, &b.FareClass, &b.OutboundFlightID, &b.InboundFlightID, &b.TotalAmount, &b.Status, &b.ContactEmail, &b.CreatedAt, &b.ConfirmedAt, &b.UpdatedAt)
	return b, err
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	q := conn(ctx, r.db)
	if err := q.QueryRow(ctx, `INSERT INTO bookings (booking_code, user_id, trip_type, fare_class, outbound_flight_id, inbound_flight_id, total_amount, status, contact_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id`,
		booking.Code, booking.UserID, booking.TripType, booking.FareClass, booking.OutboundFlightID, booking.InboundFlightID,
		booking.TotalAmount, booking.Status, booking.ContactEmail, booking.CreatedAt).Scan(&booking.ID); err != nil {
		return mapError(err, "booking", booking.Code)
	}
	booking.UpdatedAt = booking.CreatedAt

	for i := range booking.Passengers {
		bp := &booking.Passengers[i]
		bp.BookingID = booking.ID
		if err := q.QueryRow(ctx, `INSERT INTO booking_passengers (booking_id, passenger_id, seat_id, seat_number)
			VALUES ($1, $2, $3, $4) RETURNING id`, bp.BookingID, bp.PassengerID, bp.SeatID, bp.SeatNumber).Scan(&bp.ID); err != nil {
			return mapError(err, "booking passenger", bp.PassengerID)
		}
	}
	return nil
}

func (r *PGBookingRepository) get(ctx context.Context, query string, key any) (*domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, query, key))
	if err != nil {
		return nil, mapError(err, "booking", key)
	}
	if b.Passengers, err = r.passengers(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
}

func (r *PGBookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id)
}

func (r *PGBookingRepository) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code=$1`, code)
}

func (r *PGBookingRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code=$1 FOR UPDATE`, code)
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, confirmedAt *time.Time, now time.Time) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE bookings SET status=$1, confirmed_at=COALESCE($2, confirmed_at), updated_at=$3 WHERE id=$4`, status, confirmedAt, now, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("booking", id)
	}
	return nil
}

func (r *PGBookingRepository) SetOwner(ctx context.Context, id, userID int64, now time.Time) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE bookings SET user_id=$1, updated_at=$2 WHERE id=$3`, userID, now, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("booking", id)
	}
	return nil
}

func (r *PGBookingRepository) AssignSeat(ctx context.Context, bookingPassengerID, seatID int64, seatNumber string) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE booking_passengers SET seat_id=$1, seat_number=$2 WHERE id=$3`, seatID, seatNumber, bookingPassengerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("booking passenger", bookingPassengerID)
	}
	return nil
}

func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, `UPDATE bookings SET status=$1, updated_at=$2
		WHERE status=$3 AND created_at <= $4
		RETURNING `+bookingColumns, domain.BookingStatusExpired, now, domain.BookingStatusPending, deadline)
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		if bookings[i].Passengers, err = r.passengers(ctx, bookings[i].ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *PGBookingRepository) passengers(ctx context.Context, bookingID int64) ([]domain.BookingPassenger, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, booking_id, passenger_id, seat_id, seat_number FROM booking_passengers WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.BookingPassenger, 0)
	for rows.Next() {
		var bp domain.BookingPassenger
		if err := rows.Scan(&bp.ID, &bp.BookingID, &bp.PassengerID, &bp.SeatID, &bp.SeatNumber); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
