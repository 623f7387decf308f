package gateway

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreatePaymentURL(t *testing.T) {
	c := NewClient("https://pay.example.com/checkout?merchant=sky", "https://skyplan.example.com/payments/return", "VNPAY")

	r, err := c.CreatePaymentURL(Request{PaymentID: 42, BookingCode: "SP202600001", Amount: 150000})
	require.NoError(t, err)
	assert.Equal(t, "42", r.Reference)
	_, err = uuid.Parse(r.RequestID)
	assert.NoError(t, err)

	u, err := url.Parse(r.URL)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)
	q := u.Query()
	assert.Equal(t, "sky", q.Get("merchant"))
	assert.Equal(t, "150000", q.Get("amount"))
	assert.Equal(t, "42", q.Get("reference"))
	assert.Equal(t, "Booking SP202600001", q.Get("order_info"))
	assert.Equal(t, "VNPAY", q.Get("provider"))
	assert.Equal(t, "https://skyplan.example.com/payments/return", q.Get("return_url"))
}

func TestClient_CreatePaymentURL_Invalid(t *testing.T) {
	c := NewClient("https://pay.example.com", "", "")

	_, err := c.CreatePaymentURL(Request{Amount: 10})
	assert.Error(t, err)

	_, err = c.CreatePaymentURL(Request{PaymentID: 1})
	assert.Error(t, err)

	bad := NewClient("://bad", "", "")
	_, err = bad.CreatePaymentURL(Request{PaymentID: 1, Amount: 10})
	assert.Error(t, err)
}
