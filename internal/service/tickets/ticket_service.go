package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/notify"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/sirupsen/logrus"
)

const DefaultMaxCodeAttempts = 10

type TicketUseCase interface {
	Issue(ctx context.Context, bookingCode string) ([]domain.Ticket, error)
	ListByBooking(ctx context.Context, bookingCode string, requester *int64) ([]domain.Ticket, error)
	Get(ctx context.Context, ticketCode string) (*domain.Ticket, error)
	CheckIn(ctx context.Context, ticketCode string) (*domain.Ticket, error)
	Validate(ctx context.Context, ticketCode string) (*domain.Ticket, error)
	Cancel(ctx context.Context, ticketCode string) (*domain.Ticket, error)
	Refund(ctx context.Context, ticketCode string) (*domain.Ticket, error)
}

// CodeGenerator produces candidate ticket codes; the store rejects duplicates.
type CodeGenerator interface {
	TicketCode(now time.Time) (string, error)
}

type TicketService struct {
	repos       repository.Repositories
	codes       CodeGenerator
	clock       clock.Clock
	notifier    notify.Notifier
	maxAttempts int
	log         *logrus.Logger
}

type TicketServiceOption func(*TicketService)

func WithClock(c clock.Clock) TicketServiceOption {
	return func(s *TicketService) { s.clock = c }
}

func WithNotifier(n notify.Notifier) TicketServiceOption {
	return func(s *TicketService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *logrus.Logger) TicketServiceOption {
	return func(s *TicketService) { s.log = logging.OrDiscard(l) }
}

func WithMaxCodeAttempts(n int) TicketServiceOption {
	return func(s *TicketService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewTicketService(repos repository.Repositories, gen CodeGenerator, opts ...TicketServiceOption) *TicketService {
	s := &TicketService{
		repos:       repos,
		codes:       gen,
		clock:       clock.Real(),
		notifier:    notify.Noop{},
		maxAttempts: DefaultMaxCodeAttempts,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates one ticket per booking passenger on the outbound flight.
// It runs at most once per booking: when tickets already exist they are
// returned unchanged. A seat that can no longer be confirmed is logged and
// the ticket is issued without it.
func (s *TicketService) Issue(ctx context.Context, bookingCode string) ([]domain.Ticket, error) {
	booking, err := s.repos.Bookings.GetByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, domain.NewStateError("booking", "issue tickets for", booking.Status)
	}

	existing, err := s.repos.Tickets.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	var (
		issued  []domain.Ticket
		created bool
	)
	for attempt := 1; ; attempt++ {
		issued, created, err = s.issueOnce(ctx, booking.ID)
		if err == nil {
			break
		}
		if domain.IsIntegrity(err) && attempt < s.maxAttempts {
			s.log.WithError(err).WithField("booking_code", bookingCode).Debug("ticket code collision, retrying")
			continue
		}
		return nil, fmt.Errorf("issue tickets for %s: %w", bookingCode, err)
	}

	if created {
		ticketCodes := make([]string, 0, len(issued))
		for _, t := range issued {
			ticketCodes = append(ticketCodes, t.Code)
		}
		s.log.WithFields(logrus.Fields{"booking_code": bookingCode, "tickets": len(issued)}).Info("tickets issued")

		event := notify.BookingEvent(notify.EventTicketsIssued, booking, s.clock.Now())
		event.TicketCodes = ticketCodes
		s.notifier.Notify(ctx, event)
	}
	return issued, nil
}

func (s *TicketService) issueOnce(ctx context.Context, bookingID int64) ([]domain.Ticket, bool, error) {
	var (
		issued  []domain.Ticket
		created bool
	)
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		booking, err := s.repos.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusConfirmed {
			return domain.NewStateError("booking", "issue tickets for", booking.Status)
		}

		existing, err := s.repos.Tickets.ListByBooking(ctx, booking.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			issued = existing
			return nil
		}

		flight, err := s.repos.Flights.GetByID(ctx, booking.OutboundFlightID)
		if err != nil {
			return err
		}
		now := s.clock.Now()

		issued = make([]domain.Ticket, 0, len(booking.Passengers))
		for _, bp := range booking.Passengers {
			passenger, err := s.repos.Passengers.GetByID(ctx, bp.PassengerID)
			if err != nil {
				return err
			}

			ticket := domain.Ticket{
				BookingID:          booking.ID,
				BookingPassengerID: bp.ID,
				FlightID:           flight.ID,
				PassengerName:      passenger.FullName(),
				PassengerEmail:     passenger.Email,
				PassengerPhone:     passenger.Phone,
				DocumentNumber:     passenger.DocumentNumber,
				BasePrice:          flight.BasePrice,
				Status:             domain.TicketStatusIssued,
				IssuedAt:           now,
			}

			seat, err := s.confirmSeat(ctx, booking, flight.ID, bp)
			if err != nil {
				return err
			}
			if seat != nil {
				id := seat.ID
				ticket.SeatID = &id
				ticket.SeatFee = seat.PriceModifier
			}
			ticket.TotalPrice = ticket.BasePrice + ticket.SeatFee

			if ticket.Code, err = s.codes.TicketCode(now); err != nil {
				return err
			}
			if err := s.repos.Tickets.Create(ctx, &ticket); err != nil {
				return err
			}
			issued = append(issued, ticket)
		}
		created = true
		return nil
	})
	return issued, created, err
}

// confirmSeat turns the passenger's seat into a CONFIRMED seat of the
// booking. It returns nil when the passenger has no seat or the seat was
// taken by someone else.
func (s *TicketService) confirmSeat(ctx context.Context, booking *domain.Booking, flightID int64, bp domain.BookingPassenger) (*domain.Seat, error) {
	var (
		seat *domain.Seat
		err  error
	)
	switch {
	case bp.SeatID != nil:
		seat, err = s.repos.Seats.GetByID(ctx, *bp.SeatID)
	case bp.SeatNumber != "":
		seat, err = s.repos.Seats.GetByNumber(ctx, flightID, bp.SeatNumber)
	default:
		return nil, nil
	}
	if domain.IsNotFound(err) {
		s.log.WithFields(logrus.Fields{"booking_code": booking.Code, "booking_passenger_id": bp.ID}).Warn("seat for ticket not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if seat.FlightID != flightID {
		s.log.WithFields(logrus.Fields{"booking_code": booking.Code, "seat_id": seat.ID}).Warn("seat belongs to another flight")
		return nil, nil
	}

	ok, err := s.repos.Seats.Confirm(ctx, seat.ID, booking.ID, booking.UserID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.WithFields(logrus.Fields{
			"booking_code": booking.Code,
			"seat_id":      seat.ID,
			"seat_number":  seat.SeatNumber,
		}).Warn("seat no longer available, issuing ticket without seat")
		return nil, nil
	}
	if err := s.repos.Flights.ReserveSeat(ctx, flightID); err != nil {
		return nil, err
	}
	return seat, nil
}

// ListByBooking returns the tickets of a booking visible to requester.
func (s *TicketService) ListByBooking(ctx context.Context, bookingCode string, requester *int64) ([]domain.Ticket, error) {
	booking, err := s.repos.Bookings.GetByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	if !booking.AccessibleBy(requester) {
		return nil, domain.NewNotFound("booking", bookingCode)
	}
	return s.repos.Tickets.ListByBooking(ctx, booking.ID)
}

func (s *TicketService) Get(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	return s.repos.Tickets.GetByCode(ctx, ticketCode)
}

func (s *TicketService) CheckIn(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketCode, func(ctx context.Context, t *domain.Ticket) error {
		if t.Status != domain.TicketStatusIssued {
			return domain.NewStateError("ticket", "check in", t.Status)
		}
		if t.CheckedIn {
			return domain.NewStateError("ticket", "check in", "CHECKED_IN")
		}
		now := s.clock.Now()
		t.CheckedIn = true
		t.CheckedInAt = &now
		t.BoardingPassIssued = true
		return nil
	})
}

// Validate accepts a checked-in ticket at boarding. Once every ticket of the
// booking is used the booking is completed.
func (s *TicketService) Validate(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketCode, func(ctx context.Context, t *domain.Ticket) error {
		if t.Status != domain.TicketStatusIssued {
			return domain.NewStateError("ticket", "validate", t.Status)
		}
		if !t.CheckedIn {
			return domain.NewValidationError("ticket %s has not been checked in", t.Code)
		}
		now := s.clock.Now()
		t.Status = domain.TicketStatusUsed
		t.UsedAt = &now
		return s.completeIfUsed(ctx, t, now)
	})
}

func (s *TicketService) Cancel(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketCode, func(ctx context.Context, t *domain.Ticket) error {
		if t.Status != domain.TicketStatusIssued {
			return domain.NewStateError("ticket", "cancel", t.Status)
		}
		now := s.clock.Now()
		t.Status = domain.TicketStatusCancelled
		t.CancelledAt = &now
		return s.releaseSeat(ctx, t)
	})
}

func (s *TicketService) Refund(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketCode, func(ctx context.Context, t *domain.Ticket) error {
		switch t.Status {
		case domain.TicketStatusIssued:
			if err := s.releaseSeat(ctx, t); err != nil {
				return err
			}
			now := s.clock.Now()
			t.CancelledAt = &now
		case domain.TicketStatusCancelled:
		default:
			return domain.NewStateError("ticket", "refund", t.Status)
		}
		t.Status = domain.TicketStatusRefunded
		return nil
	})
}

// mutate loads the ticket under lock, applies fn and persists the result.
func (s *TicketService) mutate(ctx context.Context, ticketCode string, fn func(ctx context.Context, t *domain.Ticket) error) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.repos.Tickets.GetByCodeForUpdate(ctx, ticketCode)
		if err != nil {
			return err
		}
		from := t.Status
		if err := fn(ctx, t); err != nil {
			return err
		}
		if err := s.repos.Tickets.Update(ctx, t); err != nil {
			return err
		}
		if from != t.Status {
			s.log.WithFields(logrus.Fields{"ticket_code": t.Code, "from": from, "to": t.Status}).Info("ticket status changed")
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TicketService) releaseSeat(ctx context.Context, t *domain.Ticket) error {
	if t.SeatID == nil {
		return nil
	}
	ok, err := s.repos.Seats.ReleaseConfirmedSeat(ctx, *t.SeatID, t.BookingID, s.clock.Now())
	if err != nil {
		return err
	}
	if ok {
		return s.repos.Flights.ReleaseSeat(ctx, t.FlightID)
	}
	return nil
}

// completeIfUsed treats used as already USED even if it is not yet persisted.
func (s *TicketService) completeIfUsed(ctx context.Context, used *domain.Ticket, now time.Time) error {
	bookingID := used.BookingID
	tickets, err := s.repos.Tickets.ListByBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	for _, t := range tickets {
		if t.ID != used.ID && t.Status != domain.TicketStatusUsed {
			return nil
		}
	}
	booking, err := s.repos.Bookings.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil
	}
	if err := s.repos.Bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCompleted, nil, now); err != nil {
		return err
	}
	s.log.WithField("booking_code", booking.Code).Info("booking completed")
	return nil
}

var _ TicketUseCase = (*TicketService)(nil)
