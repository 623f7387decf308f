package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
)

type paymentRepo struct {
	s *Store
}

func (r *paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.bookings[p.BookingID]; !ok {
		return domain.NewNotFound("booking", p.BookingID)
	}
	p.ID = r.s.data.nextID()
	p.UpdatedAt = p.CreatedAt
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, domain.NewNotFound("payment", id)
	}
	return &p, nil
}

func (r *paymentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepo) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.Payment, 0)
	for _, p := range r.s.data.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, transactionID string, paidAt *time.Time, now time.Time) error {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.payments[id]
	if !ok {
		return domain.NewNotFound("payment", id)
	}
	p.Status = status
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	if paidAt != nil {
		at := *paidAt
		p.PaidAt = &at
	}
	p.UpdatedAt = now
	r.s.data.payments[id] = p
	return nil
}
