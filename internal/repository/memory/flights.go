package memory

import (
	"context"
	"sort"

	"github.com/Domenick1991/skyplan/internal/domain"
)

type flightRepo struct {
	s *Store
}

func (r *flightRepo) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.Flight, 0, len(r.s.data.flights))
	for _, f := range r.s.data.flights {
		if filter.Match(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureTime.Equal(out[j].DepartureTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartureTime.Before(out[j].DepartureTime)
	})
	return out, nil
}

func (r *flightRepo) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	defer r.s.lock(ctx)()

	f, ok := r.s.data.flights[id]
	if !ok {
		return nil, domain.NewNotFound("flight", id)
	}
	return &f, nil
}

func (r *flightRepo) ReserveSeat(ctx context.Context, flightID int64) error {
	return r.adjust(ctx, flightID, -1)
}

func (r *flightRepo) ReleaseSeat(ctx context.Context, flightID int64) error {
	return r.adjust(ctx, flightID, 1)
}

func (r *flightRepo) adjust(ctx context.Context, flightID int64, delta int) error {
	defer r.s.lock(ctx)()

	f, ok := r.s.data.flights[flightID]
	if !ok {
		return domain.NewNotFound("flight", flightID)
	}
	f.AvailableSeats = min(max(f.AvailableSeats+delta, 0), f.TotalSeats)
	r.s.data.flights[flightID] = f
	return nil
}
