package memory

import (
	"context"
	"sort"

	"github.com/Domenick1991/skyplan/internal/domain"
)

type passengerRepo struct {
	s *Store
}

func (r *passengerRepo) Create(ctx context.Context, p *domain.Passenger) error {
	defer r.s.lock(ctx)()

	p.ID = r.s.data.nextID()
	p.UpdatedAt = p.CreatedAt
	r.s.data.passengers[p.ID] = *p
	return nil
}

func (r *passengerRepo) Update(ctx context.Context, p *domain.Passenger) error {
	defer r.s.lock(ctx)()

	existing, ok := r.s.data.passengers[p.ID]
	if !ok {
		return domain.NewNotFound("passenger", p.ID)
	}
	row := *p
	row.CreatedAt = existing.CreatedAt
	r.s.data.passengers[p.ID] = row
	return nil
}

func (r *passengerRepo) GetByID(ctx context.Context, id int64) (*domain.Passenger, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.passengers[id]
	if !ok {
		return nil, domain.NewNotFound("passenger", id)
	}
	return &p, nil
}

func (r *passengerRepo) FindByDocument(ctx context.Context, userID int64, documentNumber string) (*domain.Passenger, error) {
	defer r.s.lock(ctx)()

	var found *domain.Passenger
	for _, p := range r.s.data.passengers {
		if p.UserID != nil && *p.UserID == userID && p.DocumentNumber == documentNumber {
			if found == nil || p.ID < found.ID {
				match := p
				found = &match
			}
		}
	}
	return found, nil
}

func (r *passengerRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Passenger, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.Passenger, 0)
	for _, p := range r.s.data.passengers {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
