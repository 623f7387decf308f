package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/repository"
)

type seatRepo struct {
	s *Store
}

func (r *seatRepo) sorted(match func(domain.Seat) bool) []domain.Seat {
	out := make([]domain.Seat, 0)
	for _, seat := range r.s.data.seats {
		if match(seat) {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *seatRepo) ListByFlight(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	defer r.s.lock(ctx)()
	return r.sorted(func(s domain.Seat) bool { return s.FlightID == flightID }), nil
}

func (r *seatRepo) CreateLayout(ctx context.Context, seats []domain.Seat) error {
	defer r.s.lock(ctx)()

	existing := make(map[string]bool)
	for _, s := range r.s.data.seats {
		if len(seats) > 0 && s.FlightID == seats[0].FlightID {
			existing[s.SeatNumber] = true
		}
	}
	now := time.Now().UTC()
	for _, seat := range seats {
		if existing[seat.SeatNumber] {
			continue
		}
		seat.ID = r.s.data.nextID()
		seat.CreatedAt = now
		seat.UpdatedAt = now
		r.s.data.seats[seat.ID] = seat
		existing[seat.SeatNumber] = true
	}
	return nil
}

func (r *seatRepo) GetByID(ctx context.Context, id int64) (*domain.Seat, error) {
	defer r.s.lock(ctx)()

	seat, ok := r.s.data.seats[id]
	if !ok {
		return nil, domain.NewNotFound("seat", id)
	}
	return &seat, nil
}

func (r *seatRepo) GetByNumber(ctx context.Context, flightID int64, seatNumber string) (*domain.Seat, error) {
	defer r.s.lock(ctx)()

	for _, seat := range r.s.data.seats {
		if seat.FlightID == flightID && seat.SeatNumber == seatNumber {
			return &seat, nil
		}
	}
	return nil, domain.NewNotFound("seat", seatNumber)
}

func (r *seatRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Seat, error) {
	defer r.s.lock(ctx)()
	return r.sorted(func(s domain.Seat) bool { return slices.Contains(ids, s.ID) }), nil
}

func (r *seatRepo) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]domain.Seat, error) {
	return r.GetByIDs(ctx, ids)
}

func (r *seatRepo) Hold(ctx context.Context, seatID, userID int64, now, until time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	seat, ok := r.s.data.seats[seatID]
	if !ok || !seat.AvailableFor(userID, now) {
		return false, nil
	}
	seat.Hold(userID, now, until.Sub(now))
	r.s.data.seats[seatID] = seat
	return true, nil
}

func (r *seatRepo) ReleaseHolds(ctx context.Context, filter repository.HoldFilter, now time.Time) ([]domain.Seat, error) {
	defer r.s.lock(ctx)()

	matched := r.sorted(func(s domain.Seat) bool {
		if !s.HeldBy(filter.UserID) {
			return false
		}
		if filter.FlightID != 0 && s.FlightID != filter.FlightID {
			return false
		}
		if len(filter.SeatIDs) > 0 && !slices.Contains(filter.SeatIDs, s.ID) {
			return false
		}
		return !slices.Contains(filter.ExcludeSeatIDs, s.ID)
	})
	return r.release(matched, now), nil
}

func (r *seatRepo) ReleaseExpired(ctx context.Context, flightID int64, now time.Time) ([]domain.Seat, error) {
	defer r.s.lock(ctx)()

	matched := r.sorted(func(s domain.Seat) bool {
		return s.HoldExpired(now) && (flightID == 0 || s.FlightID == flightID)
	})
	return r.release(matched, now), nil
}

func (r *seatRepo) Confirm(ctx context.Context, seatID, bookingID int64, holder *int64, now time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	seat, ok := r.s.data.seats[seatID]
	if !ok {
		return false, nil
	}
	switch {
	case seat.Status == domain.SeatStatusAvailable:
	case seat.HoldExpired(now):
	case holder != nil && seat.HeldBy(*holder):
	default:
		return false, nil
	}
	seat.Confirm(bookingID, now)
	r.s.data.seats[seatID] = seat
	return true, nil
}

func (r *seatRepo) ReleaseConfirmed(ctx context.Context, bookingID int64, now time.Time) ([]domain.Seat, error) {
	defer r.s.lock(ctx)()

	matched := r.sorted(func(s domain.Seat) bool {
		return s.Status == domain.SeatStatusConfirmed && s.ConfirmedBookingID != nil && *s.ConfirmedBookingID == bookingID
	})
	return r.release(matched, now), nil
}

func (r *seatRepo) ReleaseConfirmedSeat(ctx context.Context, seatID, bookingID int64, now time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	seat, ok := r.s.data.seats[seatID]
	if !ok || seat.Status != domain.SeatStatusConfirmed || seat.ConfirmedBookingID == nil || *seat.ConfirmedBookingID != bookingID {
		return false, nil
	}
	r.release([]domain.Seat{seat}, now)
	return true, nil
}

// release must be called with the store locked.
func (r *seatRepo) release(seats []domain.Seat, now time.Time) []domain.Seat {
	for i := range seats {
		seats[i].Release(now)
		r.s.data.seats[seats[i].ID] = seats[i]
	}
	return seats
}
