package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, transactionID string, paidAt *time.Time, now time.Time) error
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount, provider, transaction_id, status, created_at, paid_at, updated_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Provider, &p.TransactionID, &p.Status, &p.CreatedAt, &p.PaidAt, &p.UpdatedAt)
	return p, err
}

func (r *PGPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO payments (booking_id, amount, provider, transaction_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		p.BookingID, p.Amount, p.Provider, p.TransactionID, p.Status, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return mapError(err, "payment", p.BookingID)
	}
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err, "payment", id)
	}
	return &p, nil
}

func (r *PGPaymentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "payment", id)
	}
	return &p, nil
}

func (r *PGPaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGPaymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, transactionID string, paidAt *time.Time, now time.Time) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE payments SET status=$1, transaction_id=COALESCE(NULLIF($2, ''), transaction_id), paid_at=COALESCE($3, paid_at), updated_at=$4 WHERE id=$5`,
		status, transactionID, paidAt, now, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("payment", id)
	}
	return nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
