package memory

import (
	"context"
	"sort"

	"github.com/Domenick1991/skyplan/internal/domain"
)

type ticketRepo struct {
	s *Store
}

func (r *ticketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	defer r.s.lock(ctx)()

	for _, existing := range r.s.data.tickets {
		if existing.Code == t.Code {
			return &domain.IntegrityError{Constraint: "tickets_code_key"}
		}
		if existing.BookingID == t.BookingID && existing.BookingPassengerID == t.BookingPassengerID {
			return &domain.IntegrityError{Constraint: "tickets_booking_passenger_key"}
		}
	}
	t.ID = r.s.data.nextID()
	r.s.data.tickets[t.ID] = *t
	return nil
}

func (r *ticketRepo) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	defer r.s.lock(ctx)()

	for _, t := range r.s.data.tickets {
		if t.Code == code {
			return &t, nil
		}
	}
	return nil, domain.NewNotFound("ticket", code)
}

func (r *ticketRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Ticket, error) {
	return r.GetByCode(ctx, code)
}

func (r *ticketRepo) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.Ticket, 0)
	for _, t := range r.s.data.tickets {
		if t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ticketRepo) Update(ctx context.Context, t *domain.Ticket) error {
	defer r.s.lock(ctx)()

	existing, ok := r.s.data.tickets[t.ID]
	if !ok {
		return domain.NewNotFound("ticket", t.Code)
	}
	existing.Status = t.Status
	existing.CheckedIn = t.CheckedIn
	existing.CheckedInAt = t.CheckedInAt
	existing.BoardingPassIssued = t.BoardingPassIssued
	existing.UsedAt = t.UsedAt
	existing.CancelledAt = t.CancelledAt
	r.s.data.tickets[t.ID] = existing
	return nil
}
