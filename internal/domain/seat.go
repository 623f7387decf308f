package domain

import (
	"strings"
	"time"
)

type SeatStatus string

const (
	SeatStatusAvailable           SeatStatus = "AVAILABLE"
	SeatStatusTemporarilyReserved SeatStatus = "TEMPORARILY_RESERVED"
	SeatStatusConfirmed           SeatStatus = "CONFIRMED"
	SeatStatusBlocked             SeatStatus = "BLOCKED"
)

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "ECONOMY"
	SeatClassPremium  SeatClass = "PREMIUM"
	SeatClassBusiness SeatClass = "BUSINESS"
)

type Seat struct {
	ID                 int64      `json:"id"`
	FlightID           int64      `json:"flight_id"`
	SeatNumber         string     `json:"seat_number"`
	Class              SeatClass  `json:"seat_class"`
	PriceModifier      int64      `json:"price_modifier"`
	Status             SeatStatus `json:"status"`
	ReservedBy         *int64     `json:"reserved_by,omitempty"`
	ReservedAt         *time.Time `json:"reserved_at,omitempty"`
	ReservedUntil      *time.Time `json:"reserved_until,omitempty"`
	ConfirmedBookingID *int64     `json:"confirmed_booking_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HoldExpired reports whether a temporary hold has run out at now.
// A hold without an expiry instant is treated as expired.
func (s Seat) HoldExpired(now time.Time) bool {
	if s.Status != SeatStatusTemporarilyReserved {
		return false
	}
	return s.ReservedUntil == nil || !now.Before(*s.ReservedUntil)
}

func (s Seat) HeldBy(userID int64) bool {
	return s.Status == SeatStatusTemporarilyReserved && s.ReservedBy != nil && *s.ReservedBy == userID
}

// AvailableFor is the read-time availability check. An expired hold counts
// as available even though the row still says TEMPORARILY_RESERVED until
// the next sweep.
func (s Seat) AvailableFor(userID int64, now time.Time) bool {
	switch s.Status {
	case SeatStatusAvailable:
		return true
	case SeatStatusTemporarilyReserved:
		return s.HeldBy(userID) || s.HoldExpired(now)
	default:
		return false
	}
}

// Release clears hold and confirmation data and marks the seat available.
func (s *Seat) Release(now time.Time) {
	s.Status = SeatStatusAvailable
	s.ReservedBy = nil
	s.ReservedAt = nil
	s.ReservedUntil = nil
	s.ConfirmedBookingID = nil
	s.UpdatedAt = now
}

func (s *Seat) Hold(userID int64, now time.Time, ttl time.Duration) {
	until := now.Add(ttl)
	at := now
	holder := userID
	s.Status = SeatStatusTemporarilyReserved
	s.ReservedBy = &holder
	s.ReservedAt = &at
	s.ReservedUntil = &until
	s.ConfirmedBookingID = nil
	s.UpdatedAt = now
}

func (s *Seat) Confirm(bookingID int64, now time.Time) {
	id := bookingID
	s.Status = SeatStatusConfirmed
	s.ReservedBy = nil
	s.ReservedAt = nil
	s.ReservedUntil = nil
	s.ConfirmedBookingID = &id
	s.UpdatedAt = now
}

func (s Seat) Column() string {
	if s.SeatNumber == "" {
		return ""
	}
	return strings.ToUpper(s.SeatNumber[len(s.SeatNumber)-1:])
}

func (s Seat) IsWindowSeat() bool {
	c := s.Column()
	return c == "A" || c == "F"
}

func (s Seat) IsAisleSeat() bool {
	c := s.Column()
	return c == "C" || c == "D"
}
