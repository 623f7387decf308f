package payment

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/codes"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/gateway"
	"github.com/Domenick1991/skyplan/internal/notify"
	"github.com/Domenick1991/skyplan/internal/pricing"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/Domenick1991/skyplan/internal/repository/memory"
	"github.com/Domenick1991/skyplan/internal/service/booking"
	"github.com/Domenick1991/skyplan/internal/service/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) Issue(ctx context.Context, bookingCode string) ([]domain.Ticket, error) {
	args := m.Called(ctx, bookingCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

type fixture struct {
	repos    repository.Repositories
	clock    *clock.Fake
	notifier *recordingNotifier
	bookings *booking.BookingService
	service  *PaymentService
	flight   domain.Flight
	seats    map[string]domain.Seat
}

func newFixture(t *testing.T, issuer TicketIssuer) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	fake := clock.NewFake(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	flight := store.AddFlight(domain.Flight{FlightNumber: "SP101", FromAirport: "HAN", ToAirport: "SGN", TotalSeats: 168, BasePrice: 1000000})
	require.NoError(t, store.Seats().CreateLayout(ctx, domain.DefaultSeatLayout().Seats(flight.ID)))
	list, err := store.Seats().ListByFlight(ctx, flight.ID)
	require.NoError(t, err)
	seats := make(map[string]domain.Seat, len(list))
	for _, s := range list {
		seats[s.SeatNumber] = s
	}

	repos := store.Repositories()
	notifier := &recordingNotifier{}
	gen := codes.NewGenerator("", "")
	if issuer == nil {
		issuer = tickets.NewTicketService(repos, gen, tickets.WithClock(fake))
	}
	gw := gateway.NewClient("https://pay.example.com/checkout", "https://skyplan.example.com/return", "VNPAY")

	return &fixture{
		repos:    repos,
		clock:    fake,
		notifier: notifier,
		bookings: booking.NewBookingService(repos, pricing.NewCalculator(pricing.DefaultConfig()), gen, booking.WithClock(fake)),
		service:  NewPaymentService(repos, gw, issuer, WithClock(fake), WithNotifier(notifier)),
		flight:   flight,
		seats:    seats,
	}
}

func (f *fixture) createBooking(t *testing.T, user *int64, seatNumbers ...string) *domain.Booking {
	t.Helper()
	pax := make([]booking.PassengerInput, 0, len(seatNumbers))
	for _, number := range seatNumbers {
		id := f.seats[number].ID
		pax = append(pax, booking.PassengerInput{FirstName: "Pax", LastName: number, SeatID: &id})
	}
	b, err := f.bookings.Create(context.Background(), booking.CreateBookingInput{
		RequesterID:      user,
		OutboundFlightID: f.flight.ID,
		TripType:         domain.TripTypeOneWay,
		FareClass:        domain.FareClassEconomy,
		Passengers:       pax,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) initiate(t *testing.T, b *domain.Booking, user *int64) *Attempt {
	t.Helper()
	a, err := f.service.Initiate(context.Background(), InitiateInput{BookingCode: b.Code, Amount: b.TotalAmount, RequesterID: user})
	require.NoError(t, err)
	return a
}

func ptr(v int64) *int64 { return &v }

func ticketCodes(list []domain.Ticket) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.Code)
	}
	return out
}

func TestPaymentService_Initiate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := ptr(42)
	b := f.createBooking(t, user, "3A")

	_, err := f.service.Initiate(ctx, InitiateInput{BookingCode: b.Code, Amount: b.TotalAmount - 1, RequesterID: user})
	assert.True(t, domain.IsValidation(err))

	_, err = f.service.Initiate(ctx, InitiateInput{BookingCode: b.Code, Amount: b.TotalAmount, RequesterID: ptr(7)})
	assert.True(t, domain.IsNotFound(err))

	a := f.initiate(t, b, user)
	assert.Equal(t, domain.PaymentStatusPending, a.Payment.Status)
	assert.Equal(t, "VNPAY", a.Payment.Provider)
	assert.Equal(t, 1, a.Attempts)

	u, err := url.Parse(a.Redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, a.Redirect.Reference, u.Query().Get("reference"))

	second := f.initiate(t, b, user)
	assert.Equal(t, 2, second.Attempts)

	list, err := f.service.ListByBooking(ctx, b.Code, user)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPaymentService_Confirm_SuccessIssuesTickets(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := ptr(42)
	b := f.createBooking(t, user, "4A", "4B")
	a := f.initiate(t, b, user)

	res, err := f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-1", RequesterID: user})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, domain.PaymentStatusSuccess, res.Payment.Status)
	assert.Equal(t, "TXN-1", res.Payment.TransactionID)
	assert.Equal(t, domain.BookingStatusConfirmed, res.Booking.Status)
	require.NotNil(t, res.Booking.ConfirmedAt)
	assert.Equal(t, f.clock.Now(), *res.Booking.ConfirmedAt)

	require.Len(t, res.Tickets, 2)
	for i, number := range []string{"4A", "4B"} {
		assert.Equal(t, f.seats[number].ID, *res.Tickets[i].SeatID)
		seat, err := f.repos.Seats.GetByID(ctx, f.seats[number].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SeatStatusConfirmed, seat.Status)
		assert.Equal(t, b.ID, *seat.ConfirmedBookingID)
	}

	stored, err := f.repos.Payments.GetByID(ctx, a.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	dup, err := f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-1", FromGateway: true})
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, ticketCodes(res.Tickets), ticketCodes(dup.Tickets))

	all, err := f.repos.Tickets.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusFailed, RequesterID: user})
	assert.True(t, domain.IsState(err))

	assert.Equal(t, []notify.EventType{notify.EventBookingConfirmed}, f.notifier.types())
}

func TestPaymentService_Confirm_FailedThenRetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b := f.createBooking(t, nil, "6C")
	first := f.initiate(t, b, nil)

	res, err := f.service.Confirm(ctx, ConfirmInput{PaymentID: first.Payment.ID, Status: domain.PaymentStatusFailed, TransactionID: "TXN-F", FromGateway: true})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPaymentFailed, res.Booking.Status)
	assert.Empty(t, res.Tickets)

	second := f.initiate(t, b, nil)
	assert.Equal(t, 2, second.Attempts)

	res, err = f.service.Confirm(ctx, ConfirmInput{PaymentID: second.Payment.ID, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-S", FromGateway: true})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, res.Booking.Status)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, f.seats["6C"].ID, *res.Tickets[0].SeatID)

	_, err = f.service.Initiate(ctx, InitiateInput{BookingCode: b.Code, Amount: b.TotalAmount})
	assert.True(t, domain.IsState(err))

	assert.Equal(t, []notify.EventType{notify.EventPaymentFailed, notify.EventBookingConfirmed}, f.notifier.types())
}

func TestPaymentService_Confirm_CancelledBooking(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := ptr(42)
	b := f.createBooking(t, user, "8D")
	a := f.initiate(t, b, user)

	_, err := f.bookings.Cancel(ctx, b.Code, user)
	require.NoError(t, err)

	_, err = f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-1", RequesterID: user})
	assert.True(t, domain.IsState(err))

	p, err := f.service.Get(ctx, a.Payment.ID, user)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)

	_, err = f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: "REFUNDED", RequesterID: user})
	assert.True(t, domain.IsValidation(err))
}

func TestPaymentService_Confirm_IssuanceFailureIsNotFatal(t *testing.T) {
	issuer := &MockIssuer{}
	f := newFixture(t, issuer)
	ctx := context.Background()
	b := f.createBooking(t, nil, "9A")
	a := f.initiate(t, b, nil)

	issuer.On("Issue", mock.Anything, b.Code).Return(nil, errors.New("ticket store unavailable")).Once()

	res, err := f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-1", FromGateway: true})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, res.Booking.Status)
	assert.Empty(t, res.Tickets)
	issuer.AssertExpectations(t)

	stored, err := f.repos.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, stored.Status)
}

func TestPaymentService_Confirm_UnknownPayment(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.service.Confirm(context.Background(), ConfirmInput{PaymentID: 404, Status: domain.PaymentStatusSuccess, FromGateway: true})
	assert.True(t, domain.IsNotFound(err))
}

func TestPaymentService_Confirm_RequiresOwnerOrGateway(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := ptr(42)
	b := f.createBooking(t, owner, "5A")
	a := f.initiate(t, b, owner)

	for name, in := range map[string]ConfirmInput{
		"anonymous":  {PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess},
		"other user": {PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, RequesterID: ptr(7)},
	} {
		_, err := f.service.Confirm(ctx, in)
		assert.True(t, domain.IsNotFound(err), name)
	}

	stored, err := f.repos.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
	issued, err := f.repos.Tickets.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, issued)

	_, err = f.service.Get(ctx, a.Payment.ID, nil)
	assert.True(t, domain.IsNotFound(err))
	_, err = f.service.Get(ctx, a.Payment.ID, ptr(7))
	assert.True(t, domain.IsNotFound(err))

	res, err := f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-1", FromGateway: true})
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 1)

	_, err = f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, RequesterID: ptr(7)})
	assert.True(t, domain.IsNotFound(err))

	p, err := f.service.Get(ctx, a.Payment.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, p.Status)
}

func TestPaymentService_Confirm_GuestBookingNeedsGateway(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b := f.createBooking(t, nil, "5B")
	a := f.initiate(t, b, nil)

	_, err := f.service.Confirm(ctx, ConfirmInput{PaymentID: a.Payment.ID, Status: domain.PaymentStatusSuccess, RequesterID: ptr(42)})
	assert.True(t, domain.IsNotFound(err))
	_, err = f.service.Get(ctx, a.Payment.ID, nil)
	assert.True(t, domain.IsNotFound(err))

	list, err := f.service.ListByBooking(ctx, b.Code, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

var _ Gateway = (*gateway.Client)(nil)
