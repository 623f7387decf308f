package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/service/booking"
	"github.com/Domenick1991/skyplan/internal/service/payment"
	"github.com/Domenick1991/skyplan/internal/service/seats"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type MockFlightUseCase struct{ mock.Mock }

func (m *MockFlightUseCase) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockSeatUseCase struct{ mock.Mock }

func (m *MockSeatUseCase) ListSeats(ctx context.Context, flightID int64, viewer *int64) (*seats.SeatMap, error) {
	args := m.Called(ctx, flightID, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seats.SeatMap), args.Error(1)
}

func (m *MockSeatUseCase) Reserve(ctx context.Context, userID int64, seatIDs []int64, holdMinutes int) ([]domain.Seat, error) {
	args := m.Called(ctx, userID, seatIDs, holdMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockSeatUseCase) Release(ctx context.Context, userID int64, seatIDs []int64, flightID int64) ([]domain.Seat, error) {
	args := m.Called(ctx, userID, seatIDs, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockSeatUseCase) SweepExpired(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

type MockBookingUseCase struct{ mock.Mock }

func (m *MockBookingUseCase) booking(args mock.Arguments) (*domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Create(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, input))
}

func (m *MockBookingUseCase) Get(ctx context.Context, code string, requester *int64) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, code, requester))
}

func (m *MockBookingUseCase) ListMine(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, code string, requester *int64) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, code, requester))
}

func (m *MockBookingUseCase) Claim(ctx context.Context, code string, userID int64) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, code, userID))
}

func (m *MockBookingUseCase) AssignSeats(ctx context.Context, code string, userID int64, assignments map[int64]int64) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, code, userID, assignments))
}

func (m *MockBookingUseCase) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockPaymentUseCase struct{ mock.Mock }

func (m *MockPaymentUseCase) Initiate(ctx context.Context, input payment.InitiateInput) (*payment.Attempt, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Attempt), args.Error(1)
}

func (m *MockPaymentUseCase) Confirm(ctx context.Context, input payment.ConfirmInput) (*payment.Confirmation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Confirmation), args.Error(1)
}

func (m *MockPaymentUseCase) Get(ctx context.Context, paymentID int64, requester *int64) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) ListByBooking(ctx context.Context, bookingCode string, requester *int64) ([]domain.Payment, error) {
	args := m.Called(ctx, bookingCode, requester)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockTicketUseCase struct{ mock.Mock }

func (m *MockTicketUseCase) ticket(args mock.Arguments) (*domain.Ticket, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketUseCase) Issue(ctx context.Context, bookingCode string) ([]domain.Ticket, error) {
	args := m.Called(ctx, bookingCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketUseCase) ListByBooking(ctx context.Context, bookingCode string, requester *int64) ([]domain.Ticket, error) {
	args := m.Called(ctx, bookingCode, requester)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketUseCase) Get(ctx context.Context, code string) (*domain.Ticket, error) {
	return m.ticket(m.Called(ctx, code))
}

func (m *MockTicketUseCase) CheckIn(ctx context.Context, code string) (*domain.Ticket, error) {
	return m.ticket(m.Called(ctx, code))
}

func (m *MockTicketUseCase) Validate(ctx context.Context, code string) (*domain.Ticket, error) {
	return m.ticket(m.Called(ctx, code))
}

func (m *MockTicketUseCase) Cancel(ctx context.Context, code string) (*domain.Ticket, error) {
	return m.ticket(m.Called(ctx, code))
}

func (m *MockTicketUseCase) Refund(ctx context.Context, code string) (*domain.Ticket, error) {
	return m.ticket(m.Called(ctx, code))
}

type MockPassengerUseCase struct{ mock.Mock }

func (m *MockPassengerUseCase) Save(ctx context.Context, userID int64, p domain.Passenger) (*domain.Passenger, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Passenger), args.Error(1)
}

func (m *MockPassengerUseCase) List(ctx context.Context, userID int64) ([]domain.Passenger, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Passenger), args.Error(1)
}

func (m *MockPassengerUseCase) Get(ctx context.Context, id int64, requester *int64) (*domain.Passenger, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Passenger), args.Error(1)
}

type mocks struct {
	flights    *MockFlightUseCase
	seats      *MockSeatUseCase
	bookings   *MockBookingUseCase
	payments   *MockPaymentUseCase
	tickets    *MockTicketUseCase
	passengers *MockPassengerUseCase
}

func newTestRouter(cfg RouterConfig) (*gin.Engine, *mocks) {
	gin.SetMode(gin.TestMode)
	m := &mocks{
		flights:    &MockFlightUseCase{},
		seats:      &MockSeatUseCase{},
		bookings:   &MockBookingUseCase{},
		payments:   &MockPaymentUseCase{},
		tickets:    &MockTicketUseCase{},
		passengers: &MockPassengerUseCase{},
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testSecret
	}
	router := NewRouter(Services{
		Flights:    m.flights,
		Seats:      m.seats,
		Bookings:   m.bookings,
		Payments:   m.payments,
		Tickets:    m.tickets,
		Passengers: m.passengers,
	}, cfg)
	return router, m
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func userToken(t *testing.T, userID int64) string {
	return signToken(t, jwt.MapClaims{"sub": strconv.FormatInt(userID, 10)})
}

// do sends a request; token may be empty for guests.
func do(t *testing.T, router http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func ptr(v int64) *int64 { return &v }
