package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/notify"
	"github.com/Domenick1991/skyplan/internal/pricing"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPendingTTL      = 30 * time.Minute
	DefaultSeatHold        = 15 * time.Minute
	DefaultMaxCodeAttempts = 10
)

type BookingUseCase interface {
	Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Get(ctx context.Context, code string, requester *int64) (*domain.Booking, error)
	ListMine(ctx context.Context, userID int64) ([]domain.Booking, error)
	Cancel(ctx context.Context, code string, requester *int64) (*domain.Booking, error)
	Claim(ctx context.Context, code string, userID int64) (*domain.Booking, error)
	AssignSeats(ctx context.Context, code string, userID int64, assignments map[int64]int64) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

// PassengerInput references a saved passenger or carries inline details for
// a passenger created with the booking.
type PassengerInput struct {
	PassengerID    int64      `json:"passenger_id,omitempty"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	Nationality    string     `json:"nationality,omitempty"`
	DocumentNumber string     `json:"document_number,omitempty"`
	SeatID         *int64     `json:"seat_id,omitempty"`
	SeatNumber     string     `json:"seat_number,omitempty"`
}

type CreateBookingInput struct {
	RequesterID      *int64           `json:"-"`
	OutboundFlightID int64            `json:"outbound_flight_id"`
	InboundFlightID  *int64           `json:"inbound_flight_id,omitempty"`
	TripType         domain.TripType  `json:"trip_type"`
	FareClass        domain.FareClass `json:"fare_class"`
	Passengers       []PassengerInput `json:"passengers"`
	Extras           []pricing.Extra  `json:"extras,omitempty"`
	TotalAmount      int64            `json:"total_amount"`
	ContactEmail     string           `json:"contact_email,omitempty"`
}

// CodeGenerator produces candidate booking codes; the store rejects duplicates.
type CodeGenerator interface {
	BookingCode(now time.Time) (string, error)
}

type BookingService struct {
	repos          repository.Repositories
	pricing        *pricing.Calculator
	codes          CodeGenerator
	clock          clock.Clock
	notifier       notify.Notifier
	log            *logrus.Logger
	pendingTTL     time.Duration
	seatHold       time.Duration
	maxAttempts    int
	rejectMismatch bool
}

type BookingServiceOption func(*BookingService)

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) { s.clock = c }
}

func WithNotifier(n notify.Notifier) BookingServiceOption {
	return func(s *BookingService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *logrus.Logger) BookingServiceOption {
	return func(s *BookingService) { s.log = logging.OrDiscard(l) }
}

func WithPendingTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.pendingTTL = d
		}
	}
}

// WithSeatHold sets how long seats picked during booking stay held for
// the booking owner.
func WithSeatHold(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.seatHold = d
		}
	}
}

func WithMaxCodeAttempts(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRejectTotalMismatch makes Create fail when the client total differs
// from the computed one instead of substituting it.
func WithRejectTotalMismatch(reject bool) BookingServiceOption {
	return func(s *BookingService) { s.rejectMismatch = reject }
}

func NewBookingService(
	repos repository.Repositories,
	calc *pricing.Calculator,
	gen CodeGenerator,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		repos:       repos,
		pricing:     calc,
		codes:       gen,
		clock:       clock.Real(),
		notifier:    notify.Noop{},
		log:         logging.Discard(),
		pendingTTL:  DefaultPendingTTL,
		seatHold:    DefaultSeatHold,
		maxAttempts: DefaultMaxCodeAttempts,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := normalize(&input); err != nil {
		return nil, err
	}

	outbound, err := s.repos.Flights.GetByID(ctx, input.OutboundFlightID)
	if err != nil {
		return nil, err
	}
	var inboundBase int64
	if input.InboundFlightID != nil {
		inbound, err := s.repos.Flights.GetByID(ctx, *input.InboundFlightID)
		if err != nil {
			return nil, err
		}
		inboundBase = inbound.BasePrice
	}

	quote, err := s.pricing.Quote(pricing.Request{
		OutboundBase: outbound.BasePrice,
		InboundBase:  inboundBase,
		FareClass:    input.FareClass,
		Passengers:   len(input.Passengers),
		Extras:       input.Extras,
	})
	if err != nil {
		return nil, err
	}
	total, err := s.reconcile(input.TotalAmount, quote)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking
	for attempt := 1; ; attempt++ {
		booking, err = s.createOnce(ctx, input, total)
		if err == nil {
			break
		}
		if domain.IsIntegrity(err) && attempt < s.maxAttempts {
			s.log.WithError(err).Debug("booking code collision, retrying")
			continue
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"passengers":   len(booking.Passengers),
		"total":        booking.TotalAmount,
	}).Info("booking created")
	s.notifier.Notify(ctx, notify.BookingEvent(notify.EventBookingCreated, booking, booking.CreatedAt))
	return booking, nil
}

func normalize(input *CreateBookingInput) error {
	if input.OutboundFlightID <= 0 {
		return domain.NewValidationError("outbound_flight_id is required")
	}
	if input.TripType == "" {
		input.TripType = domain.TripTypeOneWay
	}
	if !input.TripType.Valid() {
		return domain.NewValidationError("invalid trip_type %q", input.TripType)
	}
	if input.FareClass == "" {
		input.FareClass = domain.FareClassEconomy
	}
	if !input.FareClass.Valid() {
		return domain.NewValidationError("invalid fare_class %q", input.FareClass)
	}

	switch input.TripType {
	case domain.TripTypeOneWay:
		if input.InboundFlightID != nil {
			return domain.NewValidationError("Return flight not allowed for one-way trip")
		}
	case domain.TripTypeRoundTrip:
		if input.InboundFlightID == nil {
			return domain.NewValidationError("Return flight is required for round trip")
		}
		if *input.InboundFlightID == input.OutboundFlightID {
			return domain.NewValidationError("Return flight must differ from outbound flight")
		}
	}

	if len(input.Passengers) == 0 {
		return domain.NewValidationError("at least one passenger is required")
	}
	seen := make(map[string]bool)
	for _, p := range input.Passengers {
		var key string
		switch {
		case p.SeatID != nil:
			key = fmt.Sprintf("id:%d", *p.SeatID)
		case p.SeatNumber != "":
			key = "num:" + strings.ToUpper(p.SeatNumber)
		default:
			continue
		}
		if seen[key] {
			return domain.NewValidationError("a seat cannot be assigned to more than one passenger")
		}
		seen[key] = true
	}

	if input.ContactEmail == "" {
		for _, p := range input.Passengers {
			if p.Email != "" {
				input.ContactEmail = p.Email
				break
			}
		}
	}
	return nil
}

// reconcile picks the total to store. The computed total wins unless the
// claim agrees with it within tolerance.
func (s *BookingService) reconcile(claim int64, quote pricing.Quote) (int64, error) {
	if s.pricing.Reconcile(claim, quote) {
		return claim, nil
	}
	if claim > 0 {
		if s.rejectMismatch {
			return 0, domain.NewValidationError("total_amount %d does not match computed total %d", claim, quote.Total)
		}
		s.log.WithFields(logrus.Fields{"claimed": claim, "computed": quote.Total}).Warn("client total differs, using computed total")
	}
	return quote.Total, nil
}

func (s *BookingService) createOnce(ctx context.Context, input CreateBookingInput, total int64) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()

		links := make([]domain.BookingPassenger, 0, len(input.Passengers))
		var unavailable []string
		for _, p := range input.Passengers {
			passengerID, err := s.resolvePassenger(ctx, p, input.RequesterID, now)
			if err != nil {
				return err
			}
			link := domain.BookingPassenger{PassengerID: passengerID, SeatNumber: p.SeatNumber}

			seat, err := s.resolveSeat(ctx, input.OutboundFlightID, p)
			if err != nil {
				return err
			}
			if seat != nil {
				if !seat.AvailableFor(requesterOrZero(input.RequesterID), now) {
					unavailable = append(unavailable, seat.SeatNumber)
					continue
				}
				if input.RequesterID != nil {
					ok, err := s.repos.Seats.Hold(ctx, seat.ID, *input.RequesterID, now, now.Add(s.seatHold))
					if err != nil {
						return err
					}
					if !ok {
						unavailable = append(unavailable, seat.SeatNumber)
						continue
					}
				}
				id := seat.ID
				link.SeatID = &id
				link.SeatNumber = seat.SeatNumber
			}
			links = append(links, link)
		}
		if len(unavailable) > 0 {
			return domain.NewSeatConflict(unavailable)
		}

		code, err := s.codes.BookingCode(now)
		if err != nil {
			return err
		}
		b := &domain.Booking{
			Code:             code,
			UserID:           input.RequesterID,
			TripType:         input.TripType,
			FareClass:        input.FareClass,
			OutboundFlightID: input.OutboundFlightID,
			InboundFlightID:  input.InboundFlightID,
			TotalAmount:      total,
			Status:           domain.BookingStatusPending,
			ContactEmail:     input.ContactEmail,
			CreatedAt:        now,
			Passengers:       links,
		}
		if err := s.repos.Bookings.Create(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, err
}

func (s *BookingService) resolvePassenger(ctx context.Context, in PassengerInput, requester *int64, now time.Time) (int64, error) {
	if in.PassengerID > 0 {
		if requester == nil {
			return 0, domain.NewValidationError("guest bookings must provide passenger details")
		}
		p, err := s.repos.Passengers.GetByID(ctx, in.PassengerID)
		if err != nil {
			return 0, err
		}
		if !p.OwnedBy(requester) {
			return 0, domain.NewValidationError("passenger %d does not belong to the requester", in.PassengerID)
		}
		return p.ID, nil
	}

	p := domain.Passenger{
		UserID:         requester,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          in.Email,
		Phone:          in.Phone,
		DateOfBirth:    in.DateOfBirth,
		Nationality:    in.Nationality,
		DocumentNumber: strings.TrimSpace(in.DocumentNumber),
		CreatedAt:      now,
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := s.repos.Passengers.Create(ctx, &p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

// resolveSeat returns nil when the passenger picked no seat, or picked a
// seat number the flight has no row for yet.
func (s *BookingService) resolveSeat(ctx context.Context, flightID int64, in PassengerInput) (*domain.Seat, error) {
	switch {
	case in.SeatID != nil:
		seat, err := s.repos.Seats.GetByID(ctx, *in.SeatID)
		if err != nil {
			return nil, err
		}
		if seat.FlightID != flightID {
			return nil, domain.NewValidationError("seat %s is not on the outbound flight", seat.SeatNumber)
		}
		return seat, nil
	case in.SeatNumber != "":
		seat, err := s.repos.Seats.GetByNumber(ctx, flightID, strings.ToUpper(in.SeatNumber))
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return seat, err
	}
	return nil, nil
}

// Get hides bookings the requester may not see behind NotFound.
func (s *BookingService) Get(ctx context.Context, code string, requester *int64) (*domain.Booking, error) {
	b, err := s.repos.Bookings.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !b.AccessibleBy(requester) {
		return nil, domain.NewNotFound("booking", code)
	}
	return b, nil
}

func (s *BookingService) ListMine(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return s.repos.Bookings.ListByUser(ctx, userID)
}

// Cancel moves a booking to CANCELLED, returning its confirmed seats to
// inventory and cancelling its issued tickets.
func (s *BookingService) Cancel(ctx context.Context, code string, requester *int64) (*domain.Booking, error) {
	var (
		updated  *domain.Booking
		released int
	)
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repos.Bookings.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if !b.AccessibleBy(requester) {
			return domain.NewNotFound("booking", code)
		}
		if !b.Status.Cancellable() {
			return domain.NewStateError("booking", "cancel", b.Status)
		}

		now := s.clock.Now()
		if err := s.repos.Bookings.UpdateStatus(ctx, b.ID, domain.BookingStatusCancelled, nil, now); err != nil {
			return err
		}

		seats, err := s.repos.Seats.ReleaseConfirmed(ctx, b.ID, now)
		if err != nil {
			return err
		}
		for _, seat := range seats {
			if err := s.repos.Flights.ReleaseSeat(ctx, seat.FlightID); err != nil {
				return err
			}
		}
		released = len(seats)

		tickets, err := s.repos.Tickets.ListByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		for i := range tickets {
			if tickets[i].Status != domain.TicketStatusIssued {
				continue
			}
			tickets[i].Status = domain.TicketStatusCancelled
			tickets[i].CancelledAt = &now
			if err := s.repos.Tickets.Update(ctx, &tickets[i]); err != nil {
				return err
			}
		}

		if err := s.releaseOwnerHolds(ctx, b, now); err != nil {
			return err
		}

		b.Status = domain.BookingStatusCancelled
		b.UpdatedAt = now
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_code": code, "released_seats": released}).Info("booking cancelled")
	s.notifier.Notify(ctx, notify.BookingEvent(notify.EventBookingCancelled, updated, updated.UpdatedAt))
	return updated, nil
}

// Claim attaches a guest booking, and its guest passengers, to userID.
func (s *BookingService) Claim(ctx context.Context, code string, userID int64) (*domain.Booking, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("user is required to claim a booking")
	}
	var claimed *domain.Booking
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repos.Bookings.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if b.UserID != nil {
			if *b.UserID == userID {
				claimed = b
				return nil
			}
			return &domain.ConflictError{Message: "booking already belongs to another user"}
		}

		now := s.clock.Now()
		if err := s.repos.Bookings.SetOwner(ctx, b.ID, userID, now); err != nil {
			return err
		}
		for _, bp := range b.Passengers {
			p, err := s.repos.Passengers.GetByID(ctx, bp.PassengerID)
			if err != nil {
				return err
			}
			if p.UserID != nil {
				continue
			}
			owner := userID
			p.UserID = &owner
			p.UpdatedAt = now
			if err := s.repos.Passengers.Update(ctx, p); err != nil {
				return err
			}
		}

		owner := userID
		b.UserID = &owner
		b.UpdatedAt = now
		claimed = b
		s.log.WithFields(logrus.Fields{"booking_code": code, "user_id": userID}).Info("booking claimed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// AssignSeats holds the chosen outbound seats for userID and links them to
// booking passengers. assignments maps booking passenger id to seat id. The
// booking must be owned by userID; guest bookings are claimed first.
func (s *BookingService) AssignSeats(ctx context.Context, code string, userID int64, assignments map[int64]int64) (*domain.Booking, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("user is required to assign seats")
	}
	if len(assignments) == 0 {
		return nil, domain.NewValidationError("seat assignments are required")
	}

	var updated *domain.Booking
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repos.Bookings.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if b.IsGuest() {
			return domain.NewValidationError("claim booking %s before assigning seats", code)
		}
		requester := userID
		if !b.OwnedBy(&requester) {
			return domain.NewNotFound("booking", code)
		}
		if !b.Status.Payable() {
			return domain.NewStateError("booking", "assign seats for", b.Status)
		}

		links := make(map[int64]domain.BookingPassenger, len(b.Passengers))
		for _, bp := range b.Passengers {
			links[bp.ID] = bp
		}

		bpIDs := make([]int64, 0, len(assignments))
		seatIDs := make([]int64, 0, len(assignments))
		for bpID, seatID := range assignments {
			if _, ok := links[bpID]; !ok {
				return domain.NewValidationError("passenger %d is not part of booking %s", bpID, code)
			}
			if slices.Contains(seatIDs, seatID) {
				return domain.NewValidationError("a seat cannot be assigned to more than one passenger")
			}
			bpIDs = append(bpIDs, bpID)
			seatIDs = append(seatIDs, seatID)
		}
		slices.Sort(bpIDs)

		now := s.clock.Now()
		var unavailable []string
		for _, bpID := range bpIDs {
			seat, err := s.repos.Seats.GetByID(ctx, assignments[bpID])
			if err != nil {
				return err
			}
			if seat.FlightID != b.OutboundFlightID {
				return domain.NewValidationError("seat %s is not on the outbound flight", seat.SeatNumber)
			}
			ok, err := s.repos.Seats.Hold(ctx, seat.ID, userID, now, now.Add(s.seatHold))
			if err != nil {
				return err
			}
			if !ok {
				unavailable = append(unavailable, seat.SeatNumber)
				continue
			}

			previous := links[bpID].SeatID
			if previous != nil && *previous != seat.ID && !slices.Contains(seatIDs, *previous) {
				if _, err := s.repos.Seats.ReleaseHolds(ctx, repository.HoldFilter{UserID: userID, SeatIDs: []int64{*previous}}, now); err != nil {
					return err
				}
			}
			if err := s.repos.Bookings.AssignSeat(ctx, bpID, seat.ID, seat.SeatNumber); err != nil {
				return err
			}
		}
		if len(unavailable) > 0 {
			return domain.NewSeatConflict(unavailable)
		}

		updated, err = s.repos.Bookings.GetByID(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ExpirePendingBookings moves PENDING bookings older than the pending TTL to
// EXPIRED and frees the seat holds their owners still have on them.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	var expired []domain.Booking
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		var err error
		expired, err = s.repos.Bookings.ExpirePendingBefore(ctx, now.Add(-s.pendingTTL), now)
		if err != nil {
			return err
		}
		for i := range expired {
			if err := s.releaseOwnerHolds(ctx, &expired[i], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expire pending bookings: %w", err)
	}

	for i := range expired {
		s.notifier.Notify(ctx, notify.BookingEvent(notify.EventBookingExpired, &expired[i], expired[i].UpdatedAt))
	}
	if len(expired) > 0 {
		s.log.WithField("count", len(expired)).Info("pending bookings expired")
	}
	return expired, nil
}

func (s *BookingService) releaseOwnerHolds(ctx context.Context, b *domain.Booking, now time.Time) error {
	if b.UserID == nil {
		return nil
	}
	var seatIDs []int64
	for _, bp := range b.Passengers {
		if bp.SeatID != nil {
			seatIDs = append(seatIDs, *bp.SeatID)
		}
	}
	if len(seatIDs) == 0 {
		return nil
	}
	_, err := s.repos.Seats.ReleaseHolds(ctx, repository.HoldFilter{UserID: *b.UserID, SeatIDs: seatIDs}, now)
	return err
}

func requesterOrZero(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

var _ BookingUseCase = (*BookingService)(nil)
