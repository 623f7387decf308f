package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
)

type bookingRepo struct {
	s *Store
}

func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	defer r.s.lock(ctx)()

	for _, b := range r.s.data.bookings {
		if b.Code == booking.Code {
			return &domain.IntegrityError{Constraint: "bookings_code_key"}
		}
	}
	for _, bp := range booking.Passengers {
		if _, ok := r.s.data.passengers[bp.PassengerID]; !ok {
			return domain.NewNotFound("passenger", bp.PassengerID)
		}
	}

	booking.ID = r.s.data.nextID()
	booking.UpdatedAt = booking.CreatedAt
	for i := range booking.Passengers {
		bp := &booking.Passengers[i]
		bp.ID = r.s.data.nextID()
		bp.BookingID = booking.ID
		r.s.data.bookingPassengers[bp.ID] = *bp
	}

	row := *booking
	row.Passengers = nil
	r.s.data.bookings[row.ID] = row
	return nil
}

// withPassengers must be called with the store locked.
func (r *bookingRepo) withPassengers(b domain.Booking) *domain.Booking {
	links := make([]domain.BookingPassenger, 0)
	for _, bp := range r.s.data.bookingPassengers {
		if bp.BookingID == b.ID {
			links = append(links, bp)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	b.Passengers = links
	return &b
}

func (r *bookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	defer r.s.lock(ctx)()

	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, domain.NewNotFound("booking", id)
	}
	return r.withPassengers(b), nil
}

func (r *bookingRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	defer r.s.lock(ctx)()

	for _, b := range r.s.data.bookings {
		if b.Code == code {
			return r.withPassengers(b), nil
		}
	}
	return nil, domain.NewNotFound("booking", code)
}

func (r *bookingRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Booking, error) {
	return r.GetByCode(ctx, code)
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.Booking, 0)
	for _, b := range r.s.data.bookings {
		if b.UserID != nil && *b.UserID == userID {
			out = append(out, *r.withPassengers(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, confirmedAt *time.Time, now time.Time) error {
	defer r.s.lock(ctx)()

	b, ok := r.s.data.bookings[id]
	if !ok {
		return domain.NewNotFound("booking", id)
	}
	b.Status = status
	if confirmedAt != nil {
		at := *confirmedAt
		b.ConfirmedAt = &at
	}
	b.UpdatedAt = now
	r.s.data.bookings[id] = b
	return nil
}

func (r *bookingRepo) SetOwner(ctx context.Context, id, userID int64, now time.Time) error {
	defer r.s.lock(ctx)()

	b, ok := r.s.data.bookings[id]
	if !ok {
		return domain.NewNotFound("booking", id)
	}
	owner := userID
	b.UserID = &owner
	b.UpdatedAt = now
	r.s.data.bookings[id] = b
	return nil
}

func (r *bookingRepo) AssignSeat(ctx context.Context, bookingPassengerID, seatID int64, seatNumber string) error {
	defer r.s.lock(ctx)()

	bp, ok := r.s.data.bookingPassengers[bookingPassengerID]
	if !ok {
		return domain.NewNotFound("booking passenger", bookingPassengerID)
	}
	id := seatID
	bp.SeatID = &id
	bp.SeatNumber = seatNumber
	r.s.data.bookingPassengers[bookingPassengerID] = bp
	return nil
}

func (r *bookingRepo) ExpirePendingBefore(ctx context.Context, deadline, now time.Time) ([]domain.Booking, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.Booking, 0)
	for id, b := range r.s.data.bookings {
		if b.Status != domain.BookingStatusPending || b.CreatedAt.After(deadline) {
			continue
		}
		b.Status = domain.BookingStatusExpired
		b.UpdatedAt = now
		r.s.data.bookings[id] = b
		out = append(out, *r.withPassengers(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
