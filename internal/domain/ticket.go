package domain

import "time"

type TicketStatus string

const (
	TicketStatusIssued    TicketStatus = "ISSUED"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusRefunded  TicketStatus = "REFUNDED"
)

type Ticket struct {
	ID                 int64        `json:"id"`
	Code               string       `json:"ticket_code"`
	BookingID          int64        `json:"booking_id"`
	BookingPassengerID int64        `json:"booking_passenger_id"`
	FlightID           int64        `json:"flight_id"`
	SeatID             *int64       `json:"seat_id,omitempty"`
	PassengerName      string       `json:"passenger_name"`
	PassengerEmail     string       `json:"passenger_email,omitempty"`
	PassengerPhone     string       `json:"passenger_phone,omitempty"`
	DocumentNumber     string       `json:"document_number,omitempty"`
	BasePrice          int64        `json:"base_price"`
	SeatFee            int64        `json:"seat_fee"`
	TotalPrice         int64        `json:"total_price"`
	Status             TicketStatus `json:"status"`
	CheckedIn          bool         `json:"checked_in"`
	CheckedInAt        *time.Time   `json:"checked_in_at,omitempty"`
	BoardingPassIssued bool         `json:"boarding_pass_issued"`
	IssuedAt           time.Time    `json:"issued_at"`
	UsedAt             *time.Time   `json:"used_at,omitempty"`
	CancelledAt        *time.Time   `json:"cancelled_at,omitempty"`
}
