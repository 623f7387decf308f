package seats

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHold = 5 * time.Minute
	MaxHold     = 15 * time.Minute

	lockTTL = 10 * time.Second
)

type SeatUseCase interface {
	ListSeats(ctx context.Context, flightID int64, viewer *int64) (*SeatMap, error)
	Reserve(ctx context.Context, userID int64, seatIDs []int64, holdMinutes int) ([]domain.Seat, error)
	Release(ctx context.Context, userID int64, seatIDs []int64, flightID int64) ([]domain.Seat, error)
	SweepExpired(ctx context.Context, flightID int64) ([]domain.Seat, error)
}

// SeatLocker serialises concurrent reserve calls on a seat before they reach
// the store. It is an optimisation; the store's compare-and-set decides.
type SeatLocker interface {
	AcquireSeatLock(ctx context.Context, seatID int64, ttl time.Duration) (string, bool, error)
	ReleaseSeatLock(ctx context.Context, seatID int64, token string) error
}

type SeatView struct {
	domain.Seat
	IsWindow              bool `json:"is_window"`
	IsAisle               bool `json:"is_aisle"`
	AvailableForUser      bool `json:"available_for_user"`
	ReservedByCurrentUser bool `json:"reserved_by_current_user"`
}

type SeatMap struct {
	Flight *domain.Flight       `json:"flight"`
	Seats  []SeatView           `json:"seats"`
	Layout domain.LayoutSummary `json:"layout"`
}

type SeatService struct {
	seats       repository.SeatRepository
	flights     repository.FlightRepository
	tx          repository.Transactor
	layout      domain.SeatLayout
	clock       clock.Clock
	locker      SeatLocker
	holdDefault time.Duration
	holdMax     time.Duration
	log         *logrus.Logger
}

type SeatServiceOption func(*SeatService)

func WithLocker(l SeatLocker) SeatServiceOption {
	return func(s *SeatService) { s.locker = l }
}

func WithClock(c clock.Clock) SeatServiceOption {
	return func(s *SeatService) { s.clock = c }
}

func WithLayout(l domain.SeatLayout) SeatServiceOption {
	return func(s *SeatService) { s.layout = l }
}

func WithLogger(l *logrus.Logger) SeatServiceOption {
	return func(s *SeatService) { s.log = logging.OrDiscard(l) }
}

// WithHoldLimits overrides the default and maximum hold. The maximum never
// exceeds MaxHold.
func WithHoldLimits(def, limit time.Duration) SeatServiceOption {
	return func(s *SeatService) {
		if limit > 0 && limit <= MaxHold {
			s.holdMax = limit
		}
		if def > 0 && def <= s.holdMax {
			s.holdDefault = def
		}
	}
}

func NewSeatService(
	seats repository.SeatRepository,
	flights repository.FlightRepository,
	tx repository.Transactor,
	opts ...SeatServiceOption,
) *SeatService {
	s := &SeatService{
		seats:       seats,
		flights:     flights,
		tx:          tx,
		layout:      domain.DefaultSeatLayout(),
		clock:       clock.Real(),
		holdDefault: DefaultHold,
		holdMax:     MaxHold,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSeats returns the seat map of a flight, creating the cabin layout on
// first access. Expired holds on the flight are swept first.
func (s *SeatService) ListSeats(ctx context.Context, flightID int64, viewer *int64) (*SeatMap, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if _, err := s.SweepExpired(ctx, flightID); err != nil {
		return nil, err
	}

	seats, err := s.seats.ListByFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		if err := s.seats.CreateLayout(ctx, s.layout.Seats(flightID)); err != nil {
			return nil, fmt.Errorf("create seat layout for flight %d: %w", flightID, err)
		}
		if seats, err = s.seats.ListByFlight(ctx, flightID); err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{"flight_id": flightID, "seats": len(seats)}).Info("seat layout created")
	}

	var viewerID int64
	if viewer != nil {
		viewerID = *viewer
	}
	now := s.clock.Now()

	views := make([]SeatView, 0, len(seats))
	for _, seat := range seats {
		views = append(views, SeatView{
			Seat:                  seat,
			IsWindow:              seat.IsWindowSeat(),
			IsAisle:               seat.IsAisleSeat(),
			AvailableForUser:      seat.AvailableFor(viewerID, now),
			ReservedByCurrentUser: viewer != nil && seat.HeldBy(viewerID),
		})
	}
	return &SeatMap{
		Flight: flight,
		Seats:  views,
		Layout: s.layout.Summary(seats, viewerID, now),
	}, nil
}

// Reserve holds every seat in seatIDs for userID or none of them. Other holds
// of the user on the same flight are released, so a user has one active
// selection per flight. A zero holdMinutes means the default hold; longer
// requests are capped at the maximum.
func (s *SeatService) Reserve(ctx context.Context, userID int64, seatIDs []int64, holdMinutes int) ([]domain.Seat, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("user is required to reserve seats")
	}
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return nil, domain.NewValidationError("seat_ids is required")
	}
	if holdMinutes < 0 {
		return nil, domain.NewValidationError("hold_minutes must not be negative")
	}
	hold := s.holdDefault
	if holdMinutes > 0 {
		hold = min(time.Duration(holdMinutes)*time.Minute, s.holdMax)
	}

	current, err := s.seats.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := requireAll(ids, current); err != nil {
		return nil, err
	}

	unlock, err := s.lockSeats(ctx, current)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var held []domain.Seat
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()

		locked, err := s.seats.GetByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if err := requireAll(ids, locked); err != nil {
			return err
		}

		flightID := locked[0].FlightID
		var unavailable []string
		for _, seat := range locked {
			if seat.FlightID != flightID {
				return domain.NewValidationError("all seats must belong to the same flight")
			}
			if !seat.AvailableFor(userID, now) {
				unavailable = append(unavailable, seat.SeatNumber)
			}
		}
		if len(unavailable) > 0 {
			return domain.NewSeatConflict(unavailable)
		}

		if _, err := s.seats.ReleaseHolds(ctx, repository.HoldFilter{
			UserID:         userID,
			FlightID:       flightID,
			ExcludeSeatIDs: ids,
		}, now); err != nil {
			return err
		}

		until := now.Add(hold)
		for _, seat := range locked {
			ok, err := s.seats.Hold(ctx, seat.ID, userID, now, until)
			if err != nil {
				return err
			}
			if !ok {
				return domain.NewSeatConflict([]string{seat.SeatNumber})
			}
		}

		held, err = s.seats.GetByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"seat_ids": ids,
		"hold":     hold.String(),
	}).Info("seats reserved")
	return held, nil
}

// Release frees the caller's own holds. Explicit seat ids take precedence
// over a flight scope; with neither, every hold of the user is released.
func (s *SeatService) Release(ctx context.Context, userID int64, seatIDs []int64, flightID int64) ([]domain.Seat, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("user is required to release seats")
	}
	filter := repository.HoldFilter{UserID: userID}
	if ids := dedupe(seatIDs); len(ids) > 0 {
		filter.SeatIDs = ids
	} else {
		filter.FlightID = flightID
	}

	released, err := s.seats.ReleaseHolds(ctx, filter, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(released) > 0 {
		s.log.WithFields(logrus.Fields{"user_id": userID, "released": len(released)}).Info("seats released")
	}
	return released, nil
}

// SweepExpired frees holds whose expiry has passed. Zero flightID sweeps
// every flight.
func (s *SeatService) SweepExpired(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	released, err := s.seats.ReleaseExpired(ctx, flightID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("sweep expired holds: %w", err)
	}
	if len(released) > 0 {
		s.log.WithFields(logrus.Fields{"flight_id": flightID, "released": len(released)}).Info("expired holds released")
	}
	return released, nil
}

// lockSeats takes the advisory lock of every seat in id order. Locker
// failures are logged and the reservation continues without the lock.
func (s *SeatService) lockSeats(ctx context.Context, seats []domain.Seat) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	type held struct {
		seatID int64
		token  string
	}
	var acquired []held
	unlock := func() {
		for _, h := range acquired {
			if err := s.locker.ReleaseSeatLock(context.WithoutCancel(ctx), h.seatID, h.token); err != nil {
				s.log.WithError(err).WithField("seat_id", h.seatID).Warn("release seat lock")
			}
		}
	}

	for _, seat := range seats {
		token, ok, err := s.locker.AcquireSeatLock(ctx, seat.ID, lockTTL)
		if err != nil {
			s.log.WithError(err).WithField("seat_id", seat.ID).Warn("acquire seat lock")
			continue
		}
		if !ok {
			unlock()
			return nil, domain.NewSeatConflict([]string{seat.SeatNumber})
		}
		acquired = append(acquired, held{seatID: seat.ID, token: token})
	}
	return unlock, nil
}

func requireAll(ids []int64, seats []domain.Seat) error {
	if len(seats) == len(ids) {
		return nil
	}
	for _, id := range ids {
		if !slices.ContainsFunc(seats, func(s domain.Seat) bool { return s.ID == id }) {
			return domain.NewNotFound("seat", id)
		}
	}
	return nil
}

// dedupe returns the distinct positive ids in ascending order.
func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

var _ SeatUseCase = (*SeatService)(nil)
