package payment

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/gateway"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/notify"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/sirupsen/logrus"
)

type PaymentUseCase interface {
	Initiate(ctx context.Context, input InitiateInput) (*Attempt, error)
	Confirm(ctx context.Context, input ConfirmInput) (*Confirmation, error)
	Get(ctx context.Context, paymentID int64, requester *int64) (*domain.Payment, error)
	ListByBooking(ctx context.Context, bookingCode string, requester *int64) ([]domain.Payment, error)
}

type Gateway interface {
	Provider() string
	CreatePaymentURL(req gateway.Request) (gateway.Redirect, error)
}

// TicketIssuer issues a confirmed booking's tickets. It must be idempotent.
type TicketIssuer interface {
	Issue(ctx context.Context, bookingCode string) ([]domain.Ticket, error)
}

type InitiateInput struct {
	BookingCode string `json:"booking_code"`
	Amount      int64  `json:"amount"`
	Provider    string `json:"provider,omitempty"`
	RequesterID *int64 `json:"-"`
}

// ConfirmInput is a verdict on a payment. It is accepted from the booking's
// owner, or from the gateway when FromGateway is set by a caller that has
// authenticated the callback.
type ConfirmInput struct {
	PaymentID     int64                `json:"-"`
	Status        domain.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id"`
	RequesterID   *int64               `json:"-"`
	FromGateway   bool                 `json:"-"`
}

func (in ConfirmInput) authorized(b *domain.Booking) bool {
	return in.FromGateway || b.OwnedBy(in.RequesterID)
}

type Attempt struct {
	Payment  *domain.Payment  `json:"payment"`
	Redirect gateway.Redirect `json:"redirect"`
	Attempts int              `json:"attempts"`
}

type Confirmation struct {
	Payment   *domain.Payment `json:"payment"`
	Booking   *domain.Booking `json:"booking"`
	Tickets   []domain.Ticket `json:"tickets,omitempty"`
	Duplicate bool            `json:"duplicate"`
}

type PaymentService struct {
	repos    repository.Repositories
	gateway  Gateway
	issuer   TicketIssuer
	clock    clock.Clock
	notifier notify.Notifier
	log      *logrus.Logger
}

type PaymentServiceOption func(*PaymentService)

func WithClock(c clock.Clock) PaymentServiceOption {
	return func(s *PaymentService) { s.clock = c }
}

func WithNotifier(n notify.Notifier) PaymentServiceOption {
	return func(s *PaymentService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *logrus.Logger) PaymentServiceOption {
	return func(s *PaymentService) { s.log = logging.OrDiscard(l) }
}

func NewPaymentService(repos repository.Repositories, gw Gateway, issuer TicketIssuer, opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{
		repos:    repos,
		gateway:  gw,
		issuer:   issuer,
		clock:    clock.Real(),
		notifier: notify.Noop{},
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate records a PENDING payment attempt for the full booking total and
// returns where to send the customer.
func (s *PaymentService) Initiate(ctx context.Context, input InitiateInput) (*Attempt, error) {
	booking, err := s.repos.Bookings.GetByCode(ctx, input.BookingCode)
	if err != nil {
		return nil, err
	}
	if !booking.AccessibleBy(input.RequesterID) {
		return nil, domain.NewNotFound("booking", input.BookingCode)
	}
	if !booking.Status.Payable() {
		return nil, domain.NewStateError("booking", "pay for", booking.Status)
	}
	if input.Amount != booking.TotalAmount {
		return nil, domain.NewValidationError("amount %d does not match booking total %d", input.Amount, booking.TotalAmount)
	}

	provider := input.Provider
	if provider == "" {
		provider = s.gateway.Provider()
	}
	now := s.clock.Now()
	p := &domain.Payment{
		BookingID: booking.ID,
		Amount:    input.Amount,
		Provider:  provider,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Payments.Create(ctx, p); err != nil {
		return nil, err
	}

	redirect, err := s.gateway.CreatePaymentURL(gateway.Request{
		PaymentID:   p.ID,
		BookingCode: booking.Code,
		Amount:      p.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment url: %w", err)
	}

	attempts, err := s.repos.Payments.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"payment_id":   p.ID,
		"attempt":      len(attempts),
	}).Info("payment initiated")
	return &Attempt{Payment: p, Redirect: redirect, Attempts: len(attempts)}, nil
}

// Confirm applies the provider's verdict. SUCCESS confirms the booking and
// then issues tickets; issuance failures are logged and do not undo the
// confirmation. Repeating a verdict already applied is a no-op. Callers that
// are neither the owner nor the gateway get NotFound.
func (s *PaymentService) Confirm(ctx context.Context, input ConfirmInput) (*Confirmation, error) {
	paymentID, status, transactionID := input.PaymentID, input.Status, input.TransactionID
	if status != domain.PaymentStatusSuccess && status != domain.PaymentStatusFailed {
		return nil, domain.NewValidationError("status must be %s or %s", domain.PaymentStatusSuccess, domain.PaymentStatusFailed)
	}

	var (
		result   = &Confirmation{}
		previous domain.BookingStatus
	)
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.repos.Payments.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != domain.PaymentStatusPending {
			b, err := s.repos.Bookings.GetByID(ctx, p.BookingID)
			if err != nil {
				return err
			}
			if !input.authorized(b) {
				return domain.NewNotFound("payment", paymentID)
			}
			if p.Status != status {
				return domain.NewStateError("payment", "confirm", p.Status)
			}
			result.Duplicate = true
			result.Payment = p
			result.Booking = b
			return nil
		}

		b, err := s.repos.Bookings.GetByIDForUpdate(ctx, p.BookingID)
		if err != nil {
			return err
		}
		if !input.authorized(b) {
			return domain.NewNotFound("payment", paymentID)
		}
		previous = b.Status
		now := s.clock.Now()

		switch status {
		case domain.PaymentStatusSuccess:
			if !b.Status.Payable() {
				return domain.NewStateError("booking", "confirm payment for", b.Status)
			}
			if err := s.repos.Bookings.UpdateStatus(ctx, b.ID, domain.BookingStatusConfirmed, &now, now); err != nil {
				return err
			}
			b.Status = domain.BookingStatusConfirmed
			b.ConfirmedAt = &now
			if err := s.repos.Payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusSuccess, transactionID, &now, now); err != nil {
				return err
			}
			p.PaidAt = &now
		case domain.PaymentStatusFailed:
			if b.Status == domain.BookingStatusPending {
				if err := s.repos.Bookings.UpdateStatus(ctx, b.ID, domain.BookingStatusPaymentFailed, nil, now); err != nil {
					return err
				}
				b.Status = domain.BookingStatusPaymentFailed
			}
			if err := s.repos.Payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusFailed, transactionID, nil, now); err != nil {
				return err
			}
		}
		p.Status = status
		p.TransactionID = transactionID
		p.UpdatedAt = now
		b.UpdatedAt = now

		result.Payment = p
		result.Booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"payment_id":   paymentID,
		"booking_code": result.Booking.Code,
		"status":       status,
		"duplicate":    result.Duplicate,
	}
	if !result.Duplicate {
		s.log.WithFields(fields).WithField("booking_from", previous).Info("payment confirmed")
		switch status {
		case domain.PaymentStatusSuccess:
			s.notifier.Notify(ctx, notify.BookingEvent(notify.EventBookingConfirmed, result.Booking, s.clock.Now()))
		case domain.PaymentStatusFailed:
			event := notify.BookingEvent(notify.EventPaymentFailed, result.Booking, s.clock.Now())
			event.PaymentID = paymentID
			s.notifier.Notify(ctx, event)
		}
	} else {
		s.log.WithFields(fields).Info("duplicate payment confirmation")
	}

	if status == domain.PaymentStatusSuccess && result.Booking.Status == domain.BookingStatusConfirmed {
		tickets, err := s.issuer.Issue(ctx, result.Booking.Code)
		if err != nil {
			s.log.WithError(err).WithFields(fields).Error("ticket issuance failed")
		} else {
			result.Tickets = tickets
		}
	}
	return result, nil
}

// Get returns a payment to the owner of its booking. Guest bookings expose
// their payments only through ListByBooking.
func (s *PaymentService) Get(ctx context.Context, paymentID int64, requester *int64) (*domain.Payment, error) {
	p, err := s.repos.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	b, err := s.repos.Bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(requester) {
		return nil, domain.NewNotFound("payment", paymentID)
	}
	return p, nil
}

func (s *PaymentService) ListByBooking(ctx context.Context, bookingCode string, requester *int64) ([]domain.Payment, error) {
	booking, err := s.repos.Bookings.GetByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	if !booking.AccessibleBy(requester) {
		return nil, domain.NewNotFound("booking", bookingCode)
	}
	return s.repos.Payments.ListByBooking(ctx, booking.ID)
}

var _ PaymentUseCase = (*PaymentService)(nil)
