package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// ReserveSeat decrements the available-seat counter.
	ReserveSeat(ctx context.Context, flightID int64) error
	// ReleaseSeat increments the available-seat counter.
	ReleaseSeat(ctx context.Context, flightID int64) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline, from_airport, to_airport, departure_time, arrival_time, total_seats, available_seats, base_price, created_at, updated_at`

func scanFlight(row pgx.Row) (domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.BasePrice, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	var (
		where []string
		args  []any
	)
	if filter.FromAirport != "" {
		args = append(args, strings.ToUpper(filter.FromAirport))
		where = append(where, fmt.Sprintf("upper(from_airport) = $%d", len(args)))
	}
	if filter.ToAirport != "" {
		args = append(args, strings.ToUpper(filter.ToAirport))
		where = append(where, fmt.Sprintf("upper(to_airport) = $%d", len(args)))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date.Format("2006-01-02"))
		where = append(where, fmt.Sprintf("departure_time::date = $%d::date", len(args)))
	}

	query := `SELECT ` + flightColumns + ` FROM flights`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY departure_time`

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err, "flight", id)
	}
	return &f, nil
}

func (r *PGFlightRepository) ReserveSeat(ctx context.Context, flightID int64) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE flights SET available_seats = GREATEST(available_seats - 1, 0), updated_at = now() WHERE id=$1`, flightID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("flight", flightID)
	}
	return nil
}

func (r *PGFlightRepository) ReleaseSeat(ctx context.Context, flightID int64) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE flights SET available_seats = LEAST(available_seats + 1, total_seats), updated_at = now() WHERE id=$1`, flightID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("flight", flightID)
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
