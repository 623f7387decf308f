package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/gateway"
	"github.com/Domenick1991/skyplan/internal/service/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPaymentHandler_initiate(t *testing.T) {
	router, m := newTestRouter(RouterConfig{})

	m.payments.On("Initiate", mock.Anything, payment.InitiateInput{BookingCode: "SP1", Amount: 1100000, RequesterID: ptr(42)}).
		Return(&payment.Attempt{
			Payment:  &domain.Payment{ID: 7, Amount: 1100000, Status: domain.PaymentStatusPending},
			Redirect: gateway.Redirect{URL: "https://pay.example.com/?reference=7", Reference: "7"},
			Attempts: 2,
		}, nil)

	w, body := do(t, router, http.MethodPost, "/api/payments", `{"booking_code":"SP1","amount":1100000}`, userToken(t, 42))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://pay.example.com/?reference=7", body["payment_url"])
	assert.Equal(t, float64(2), body["attempts"])
	m.payments.AssertExpectations(t)
}

func TestPaymentHandler_confirm(t *testing.T) {
	router, m := newTestRouter(RouterConfig{})
	token := userToken(t, 42)

	confirmed := &payment.Confirmation{
		Payment: &domain.Payment{ID: 7, Status: domain.PaymentStatusSuccess},
		Booking: &domain.Booking{Code: "SP1", Status: domain.BookingStatusConfirmed},
		Tickets: []domain.Ticket{{Code: "SKY1"}, {Code: "SKY2"}},
	}
	byOwner := payment.ConfirmInput{PaymentID: 7, Status: domain.PaymentStatusSuccess, TransactionID: "TXN-1", RequesterID: ptr(42)}
	m.payments.On("Confirm", mock.Anything, byOwner).Return(confirmed, nil).Once()

	w, body := do(t, router, http.MethodPost, "/api/payments/7/confirm", `{"status":"SUCCESS","transaction_id":"TXN-1"}`, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payment recorded", body["message"])
	assert.Len(t, body["tickets"], 2)

	duplicate := *confirmed
	duplicate.Duplicate = true
	m.payments.On("Confirm", mock.Anything, byOwner).Return(&duplicate, nil).Once()

	w, body = do(t, router, http.MethodPost, "/api/payments/7/confirm", `{"status":"SUCCESS","transaction_id":"TXN-1"}`, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payment already recorded", body["message"])
	assert.Equal(t, true, body["duplicate"])

	m.payments.On("Confirm", mock.Anything, payment.ConfirmInput{PaymentID: 8, Status: "MAYBE", RequesterID: ptr(42)}).
		Return(nil, domain.NewValidationError("status must be SUCCESS or FAILED"))
	w, _ = do(t, router, http.MethodPost, "/api/payments/8/confirm", `{"status":"MAYBE"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.payments.On("Confirm", mock.Anything, payment.ConfirmInput{PaymentID: 9, Status: domain.PaymentStatusSuccess, RequesterID: ptr(7)}).
		Return(nil, domain.NewNotFound("payment", int64(9)))
	w, _ = do(t, router, http.MethodPost, "/api/payments/9/confirm", `{"status":"SUCCESS"}`, userToken(t, 7))
	assert.Equal(t, http.StatusNotFound, w.Code)

	m.payments.AssertExpectations(t)
}

func TestPaymentHandler_confirmRejectsAnonymous(t *testing.T) {
	router, m := newTestRouter(RouterConfig{GatewaySecret: "gw-secret"})

	w, _ := do(t, router, http.MethodPost, "/api/payments/7/confirm", `{"status":"SUCCESS"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/7/confirm", strings.NewReader(`{"status":"SUCCESS"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gatewaySecretHeader, "guess")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	m.payments.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestPaymentHandler_confirmFromGateway(t *testing.T) {
	router, m := newTestRouter(RouterConfig{GatewaySecret: "gw-secret"})

	m.payments.On("Confirm", mock.Anything, payment.ConfirmInput{PaymentID: 7, Status: domain.PaymentStatusFailed, TransactionID: "TXN-9", FromGateway: true}).
		Return(&payment.Confirmation{
			Payment: &domain.Payment{ID: 7, Status: domain.PaymentStatusFailed},
			Booking: &domain.Booking{Code: "SP1", Status: domain.BookingStatusPaymentFailed},
		}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/7/confirm", strings.NewReader(`{"status":"FAILED","transaction_id":"TXN-9"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gatewaySecretHeader, "gw-secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	m.payments.AssertExpectations(t)
}

func TestPaymentHandler_confirmGatewayDisabled(t *testing.T) {
	router, m := newTestRouter(RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/7/confirm", strings.NewReader(`{"status":"SUCCESS"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gatewaySecretHeader, "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	m.payments.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestPaymentHandler_getAndList(t *testing.T) {
	router, m := newTestRouter(RouterConfig{})
	token := userToken(t, 42)

	m.payments.On("Get", mock.Anything, int64(7), ptr(42)).Return(&domain.Payment{ID: 7}, nil)
	m.payments.On("Get", mock.Anything, int64(8), ptr(42)).Return(nil, domain.NewNotFound("payment", int64(8)))
	m.payments.On("ListByBooking", mock.Anything, "SP1", (*int64)(nil)).Return([]domain.Payment{{ID: 7}, {ID: 9}}, nil)

	w, _ := do(t, router, http.MethodGet, "/api/payments/7", "", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/payments/8", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/payments/7", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := do(t, router, http.MethodGet, "/api/bookings/SP1/payments", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["count"])
	m.payments.AssertExpectations(t)
}
