package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PassengerRepository interface {
	Create(ctx context.Context, p *domain.Passenger) error
	Update(ctx context.Context, p *domain.Passenger) error
	GetByID(ctx context.Context, id int64) (*domain.Passenger, error)
	// FindByDocument returns nil, nil when the user has no passenger with that document.
	FindByDocument(ctx context.Context, userID int64, documentNumber string) (*domain.Passenger, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Passenger, error)
}

type PGPassengerRepository struct {
	db *pgxpool.Pool
}

func NewPassengerRepository(db *pgxpool.Pool) PassengerRepository {
	return &PGPassengerRepository{db: db}
}

const passengerColumns = `id, user_id, first_name, last_name, email, phone, date_of_birth, nationality, document_number, created_at, updated_at`

func scanPassenger(row pgx.Row) (domain.Passenger, error) {
	var p domain.Passenger
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth, &p.Nationality, &p.DocumentNumber, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PGPassengerRepository) Create(ctx context.Context, p *domain.Passenger) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO passengers (user_id, first_name, last_name, email, phone, date_of_birth, nationality, document_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Nationality, p.DocumentNumber, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return mapError(err, "passenger", p.DocumentNumber)
	}
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (r *PGPassengerRepository) Update(ctx context.Context, p *domain.Passenger) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE passengers SET user_id=$1, first_name=$2, last_name=$3, email=$4, phone=$5, date_of_birth=$6, nationality=$7, document_number=$8, updated_at=$9 WHERE id=$10`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Nationality, p.DocumentNumber, p.UpdatedAt, p.ID)
	if err != nil {
		return mapError(err, "passenger", p.ID)
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("passenger", p.ID)
	}
	return nil
}

func (r *PGPassengerRepository) GetByID(ctx context.Context, id int64) (*domain.Passenger, error) {
	p, err := scanPassenger(conn(ctx, r.db).QueryRow(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err, "passenger", id)
	}
	return &p, nil
}

func (r *PGPassengerRepository) FindByDocument(ctx context.Context, userID int64, documentNumber string) (*domain.Passenger, error) {
	p, err := scanPassenger(conn(ctx, r.db).QueryRow(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE user_id=$1 AND document_number=$2 ORDER BY id LIMIT 1`, userID, documentNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPassengerRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Passenger, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Passenger, 0)
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ PassengerRepository = (*PGPassengerRepository)(nil)
