package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type Payment struct {
	ID            int64         `json:"id"`
	BookingID     int64         `json:"booking_id"`
	Amount        int64         `json:"amount"`
	Provider      string        `json:"provider"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
