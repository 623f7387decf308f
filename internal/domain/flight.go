package domain

import (
	"strings"
	"time"
)

type Flight struct {
	ID             int64     `json:"id"`
	FlightNumber   string    `json:"flight_number"`
	Airline        string    `json:"airline"`
	FromAirport    string    `json:"from_airport"`
	ToAirport      string    `json:"to_airport"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	BasePrice      int64     `json:"base_price"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FlightFilter narrows a flight search. Zero fields match everything.
type FlightFilter struct {
	FromAirport string
	ToAirport   string
	Date        time.Time
}

func (f FlightFilter) Empty() bool {
	return f.FromAirport == "" && f.ToAirport == "" && f.Date.IsZero()
}

func (f FlightFilter) Match(flight Flight) bool {
	if f.FromAirport != "" && !strings.EqualFold(f.FromAirport, flight.FromAirport) {
		return false
	}
	if f.ToAirport != "" && !strings.EqualFold(f.ToAirport, flight.ToAirport) {
		return false
	}
	if !f.Date.IsZero() {
		y1, m1, d1 := f.Date.Date()
		y2, m2, d2 := flight.DepartureTime.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}
