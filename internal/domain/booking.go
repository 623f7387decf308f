package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending       BookingStatus = "PENDING"
	BookingStatusConfirmed     BookingStatus = "CONFIRMED"
	BookingStatusPaymentFailed BookingStatus = "PAYMENT_FAILED"
	BookingStatusCancelled     BookingStatus = "CANCELLED"
	BookingStatusExpired       BookingStatus = "EXPIRED"
	BookingStatusCompleted     BookingStatus = "COMPLETED"
)

// Cancellable reports whether a booking in this status may be cancelled.
func (s BookingStatus) Cancellable() bool {
	switch s {
	case BookingStatusPending, BookingStatusPaymentFailed, BookingStatusConfirmed:
		return true
	}
	return false
}

// Payable reports whether a new payment attempt may be recorded.
func (s BookingStatus) Payable() bool {
	return s == BookingStatusPending || s == BookingStatusPaymentFailed
}

type TripType string

const (
	TripTypeOneWay    TripType = "ONE_WAY"
	TripTypeRoundTrip TripType = "ROUND_TRIP"
)

func (t TripType) Valid() bool {
	return t == TripTypeOneWay || t == TripTypeRoundTrip
}

type FareClass string

const (
	FareClassEconomy        FareClass = "ECONOMY"
	FareClassPremiumEconomy FareClass = "PREMIUM_ECONOMY"
	FareClassBusiness       FareClass = "BUSINESS"
)

func (f FareClass) Valid() bool {
	switch f {
	case FareClassEconomy, FareClassPremiumEconomy, FareClassBusiness:
		return true
	}
	return false
}

type Booking struct {
	ID               int64              `json:"id"`
	Code             string             `json:"booking_code"`
	UserID           *int64             `json:"user_id,omitempty"`
	TripType         TripType           `json:"trip_type"`
	FareClass        FareClass          `json:"fare_class"`
	OutboundFlightID int64              `json:"outbound_flight_id"`
	InboundFlightID  *int64             `json:"inbound_flight_id,omitempty"`
	TotalAmount      int64              `json:"total_amount"`
	Status           BookingStatus      `json:"status"`
	ContactEmail     string             `json:"contact_email,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	ConfirmedAt      *time.Time         `json:"confirmed_at,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Passengers       []BookingPassenger `json:"passengers,omitempty"`
}

func (b Booking) IsGuest() bool {
	return b.UserID == nil
}

// AccessibleBy reports whether requester may see or act on the booking.
// Guest bookings are reachable by code alone.
func (b Booking) AccessibleBy(requester *int64) bool {
	if b.UserID == nil {
		return true
	}
	return requester != nil && *requester == *b.UserID
}

// OwnedBy reports whether the booking belongs to requester. Guest bookings
// have no owner.
func (b Booking) OwnedBy(requester *int64) bool {
	return b.UserID != nil && requester != nil && *requester == *b.UserID
}

type BookingPassenger struct {
	ID          int64  `json:"id"`
	BookingID   int64  `json:"booking_id"`
	PassengerID int64  `json:"passenger_id"`
	SeatID      *int64 `json:"seat_id,omitempty"`
	SeatNumber  string `json:"seat_number,omitempty"`
}
