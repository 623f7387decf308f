// Package gateway builds redirect requests for the external payment provider.
// Signing and reconciliation belong to the provider and are not modelled here.
package gateway

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

type Request struct {
	PaymentID   int64
	BookingCode string
	Amount      int64
}

type Redirect struct {
	URL       string `json:"payment_url"`
	Reference string `json:"reference"`
	RequestID string `json:"request_id"`
}

type Client struct {
	baseURL   string
	returnURL string
	provider  string
}

func NewClient(baseURL, returnURL, provider string) *Client {
	return &Client{baseURL: baseURL, returnURL: returnURL, provider: provider}
}

func (c *Client) Provider() string {
	return c.provider
}

// CreatePaymentURL returns the URL the customer is sent to. The payment id is
// the reference the provider echoes back on confirmation.
func (c *Client) CreatePaymentURL(req Request) (Redirect, error) {
	if req.PaymentID <= 0 {
		return Redirect{}, fmt.Errorf("payment id is required")
	}
	if req.Amount <= 0 {
		return Redirect{}, fmt.Errorf("amount must be positive")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Redirect{}, fmt.Errorf("parse gateway url: %w", err)
	}

	ref := strconv.FormatInt(req.PaymentID, 10)
	requestID := uuid.NewString()

	q := u.Query()
	q.Set("amount", strconv.FormatInt(req.Amount, 10))
	q.Set("reference", ref)
	q.Set("order_info", "Booking "+req.BookingCode)
	q.Set("request_id", requestID)
	if c.provider != "" {
		q.Set("provider", c.provider)
	}
	if c.returnURL != "" {
		q.Set("return_url", c.returnURL)
	}
	u.RawQuery = q.Encode()

	return Redirect{URL: u.String(), Reference: ref, RequestID: requestID}, nil
}
