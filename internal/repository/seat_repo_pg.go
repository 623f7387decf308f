package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HoldFilter selects temporary holds owned by one user. Zero FlightID and
// empty SeatIDs match every hold of the user.
type HoldFilter struct {
	UserID         int64
	FlightID       int64
	SeatIDs        []int64
	ExcludeSeatIDs []int64
}

type SeatRepository interface {
	ListByFlight(ctx context.Context, flightID int64) ([]domain.Seat, error)
	// CreateLayout inserts seats, skipping any (flight, seat_number) that already exists.
	CreateLayout(ctx context.Context, seats []domain.Seat) error
	GetByID(ctx context.Context, id int64) (*domain.Seat, error)
	GetByNumber(ctx context.Context, flightID int64, seatNumber string) (*domain.Seat, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Seat, error)
	// GetByIDsForUpdate locks the rows in id order for the surrounding transaction.
	GetByIDsForUpdate(ctx context.Context, ids []int64) ([]domain.Seat, error)
	// Hold moves a seat to TEMPORARILY_RESERVED for userID if it is available
	// to that user at now. It reports false when another claimant owns it.
	Hold(ctx context.Context, seatID, userID int64, now, until time.Time) (bool, error)
	ReleaseHolds(ctx context.Context, filter HoldFilter, now time.Time) ([]domain.Seat, error)
	// ReleaseExpired frees holds whose expiry has passed. Zero flightID sweeps all flights.
	ReleaseExpired(ctx context.Context, flightID int64, now time.Time) ([]domain.Seat, error)
	// Confirm marks a seat CONFIRMED for bookingID. The seat must be available,
	// held by holder, or carry an expired hold.
	Confirm(ctx context.Context, seatID, bookingID int64, holder *int64, now time.Time) (bool, error)
	ReleaseConfirmed(ctx context.Context, bookingID int64, now time.Time) ([]domain.Seat, error)
	ReleaseConfirmedSeat(ctx context.Context, seatID, bookingID int64, now time.Time) (bool, error)
}

type PGSeatRepository struct {
	db *pgxpool.Pool
}

func NewSeatRepository(db *pgxpool.Pool) SeatRepository {
	return &PGSeatRepository{db: db}
}

const seatColumns = `id, flight_id, seat_number, seat_class, price_modifier, status, reserved_by, reserved_at, reserved_until, confirmed_booking_id, created_at, updated_at`

const releaseSet = `status='AVAILABLE', reserved_by=NULL, reserved_at=NULL, reserved_until=NULL, confirmed_booking_id=NULL`

func scanSeat(row pgx.Row) (domain.Seat, error) {
	var s domain.Seat
	err := row.Scan(&s.ID, &s.FlightID, &s.SeatNumber, &s.Class, &s.PriceModifier, &s.Status, &s.ReservedBy, &s.ReservedAt, &s.ReservedUntil, &s.ConfirmedBookingID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func collectSeats(rows pgx.Rows, err error) ([]domain.Seat, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *PGSeatRepository) ListByFlight(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	return collectSeats(conn(ctx, r.db).Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE flight_id=$1 ORDER BY id`, flightID))
}

func (r *PGSeatRepository) CreateLayout(ctx context.Context, seats []domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	numbers := make([]string, len(seats))
	classes := make([]string, len(seats))
	modifiers := make([]int64, len(seats))
	for i, s := range seats {
		numbers[i] = s.SeatNumber
		classes[i] = string(s.Class)
		modifiers[i] = s.PriceModifier
	}
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO seats (flight_id, seat_number, seat_class, price_modifier, status)
		SELECT $1, t.n, t.c, t.p, 'AVAILABLE' FROM unnest($2::text[], $3::text[], $4::bigint[]) AS t(n, c, p)
		ON CONFLICT (flight_id, seat_number) DO NOTHING`, seats[0].FlightID, numbers, classes, modifiers)
	return err
}

func (r *PGSeatRepository) GetByID(ctx context.Context, id int64) (*domain.Seat, error) {
	s, err := scanSeat(conn(ctx, r.db).QueryRow(ctx, `SELECT `+seatColumns+` FROM seats WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err, "seat", id)
	}
	return &s, nil
}

func (r *PGSeatRepository) GetByNumber(ctx context.Context, flightID int64, seatNumber string) (*domain.Seat, error) {
	s, err := scanSeat(conn(ctx, r.db).QueryRow(ctx, `SELECT `+seatColumns+` FROM seats WHERE flight_id=$1 AND seat_number=$2`, flightID, seatNumber))
	if err != nil {
		return nil, mapError(err, "seat", seatNumber)
	}
	return &s, nil
}

func (r *PGSeatRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Seat, error) {
	return collectSeats(conn(ctx, r.db).Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ANY($1) ORDER BY id`, nonNil(ids)))
}

func (r *PGSeatRepository) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]domain.Seat, error) {
	return collectSeats(conn(ctx, r.db).Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ANY($1) ORDER BY id FOR UPDATE`, nonNil(ids)))
}

func (r *PGSeatRepository) Hold(ctx context.Context, seatID, userID int64, now, until time.Time) (bool, error) {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE seats
		SET status='TEMPORARILY_RESERVED', reserved_by=$1, reserved_at=$2, reserved_until=$3, confirmed_booking_id=NULL, updated_at=$2
		WHERE id=$4 AND (status='AVAILABLE'
			OR (status='TEMPORARILY_RESERVED' AND (reserved_by=$1 OR reserved_until IS NULL OR reserved_until <= $2)))`,
		userID, now, until, seatID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *PGSeatRepository) ReleaseHolds(ctx context.Context, filter HoldFilter, now time.Time) ([]domain.Seat, error) {
	return collectSeats(conn(ctx, r.db).Query(ctx, `UPDATE seats SET `+releaseSet+`, updated_at=$5
		WHERE status='TEMPORARILY_RESERVED' AND reserved_by=$1
			AND ($2::bigint = 0 OR flight_id=$2)
			AND (cardinality($3::bigint[]) = 0 OR id = ANY($3))
			AND NOT (id = ANY($4::bigint[]))
		RETURNING `+seatColumns,
		filter.UserID, filter.FlightID, nonNil(filter.SeatIDs), nonNil(filter.ExcludeSeatIDs), now))
}

func (r *PGSeatRepository) ReleaseExpired(ctx context.Context, flightID int64, now time.Time) ([]domain.Seat, error) {
	return collectSeats(conn(ctx, r.db).Query(ctx, `UPDATE seats SET `+releaseSet+`, updated_at=$1
		WHERE status='TEMPORARILY_RESERVED' AND (reserved_until IS NULL OR reserved_until <= $1)
			AND ($2::bigint = 0 OR flight_id=$2)
		RETURNING `+seatColumns, now, flightID))
}

func (r *PGSeatRepository) Confirm(ctx context.Context, seatID, bookingID int64, holder *int64, now time.Time) (bool, error) {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE seats
		SET status='CONFIRMED', confirmed_booking_id=$2, reserved_by=NULL, reserved_at=NULL, reserved_until=NULL, updated_at=$4
		WHERE id=$1 AND (status='AVAILABLE'
			OR (status='TEMPORARILY_RESERVED' AND (reserved_by=$3 OR reserved_until IS NULL OR reserved_until <= $4)))`,
		seatID, bookingID, holder, now)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *PGSeatRepository) ReleaseConfirmed(ctx context.Context, bookingID int64, now time.Time) ([]domain.Seat, error) {
	return collectSeats(conn(ctx, r.db).Query(ctx, `UPDATE seats SET `+releaseSet+`, updated_at=$2
		WHERE status='CONFIRMED' AND confirmed_booking_id=$1
		RETURNING `+seatColumns, bookingID, now))
}

func (r *PGSeatRepository) ReleaseConfirmedSeat(ctx context.Context, seatID, bookingID int64, now time.Time) (bool, error) {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE seats SET `+releaseSet+`, updated_at=$3
		WHERE id=$1 AND status='CONFIRMED' AND confirmed_booking_id=$2`, seatID, bookingID, now)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

// nonNil keeps pgx from encoding an empty filter as NULL.
func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

var _ SeatRepository = (*PGSeatRepository)(nil)
