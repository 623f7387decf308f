package domain

import (
	"fmt"
	"strconv"
	"time"
)

type RowRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

func (r RowRange) Contains(row int) bool {
	return row >= r.From && row <= r.To
}

// SeatLayout describes the fixed aircraft cabin used to materialise seats
// for a flight the first time they are requested. It is built once from
// configuration and shared read-only.
type SeatLayout struct {
	Rows              int
	Columns           []string
	BusinessRows      RowRange
	PremiumRows       RowRange
	BusinessSurcharge int64
	PremiumSurcharge  int64
	WindowSurcharge   int64
}

func DefaultSeatLayout() SeatLayout {
	return SeatLayout{
		Rows:              28,
		Columns:           []string{"A", "B", "C", "D", "E", "F"},
		BusinessRows:      RowRange{From: 1, To: 3},
		PremiumRows:       RowRange{From: 4, To: 8},
		BusinessSurcharge: 500000,
		PremiumSurcharge:  200000,
		WindowSurcharge:   50000,
	}
}

func (l SeatLayout) Capacity() int {
	return l.Rows * len(l.Columns)
}

func (l SeatLayout) ClassForRow(row int) SeatClass {
	switch {
	case l.BusinessRows.Contains(row):
		return SeatClassBusiness
	case l.PremiumRows.Contains(row):
		return SeatClassPremium
	default:
		return SeatClassEconomy
	}
}

// Seats returns the full, unsaved seat set for a flight in row-major order.
func (l SeatLayout) Seats(flightID int64) []Seat {
	seats := make([]Seat, 0, l.Capacity())
	for row := 1; row <= l.Rows; row++ {
		class := l.ClassForRow(row)
		for _, col := range l.Columns {
			seat := Seat{
				FlightID:   flightID,
				SeatNumber: strconv.Itoa(row) + col,
				Class:      class,
				Status:     SeatStatusAvailable,
			}
			switch class {
			case SeatClassBusiness:
				seat.PriceModifier = l.BusinessSurcharge
			case SeatClassPremium:
				seat.PriceModifier = l.PremiumSurcharge
			}
			if seat.IsWindowSeat() {
				seat.PriceModifier += l.WindowSurcharge
			}
			seats = append(seats, seat)
		}
	}
	return seats
}

type LayoutSummary struct {
	Rows           int      `json:"rows"`
	Columns        []string `json:"columns"`
	BusinessRows   string   `json:"business_rows"`
	PremiumRows    string   `json:"premium_rows"`
	EconomyRows    string   `json:"economy_rows"`
	TotalSeats     int      `json:"total_seats"`
	AvailableSeats int      `json:"available_seats"`
}

// Summary describes the cabin and counts seats available to viewer at now.
func (l SeatLayout) Summary(seats []Seat, viewer int64, now time.Time) LayoutSummary {
	available := 0
	for _, s := range seats {
		if s.AvailableFor(viewer, now) {
			available++
		}
	}
	economyFrom := max(l.BusinessRows.To, l.PremiumRows.To) + 1
	return LayoutSummary{
		Rows:           l.Rows,
		Columns:        l.Columns,
		BusinessRows:   fmt.Sprintf("%d-%d", l.BusinessRows.From, l.BusinessRows.To),
		PremiumRows:    fmt.Sprintf("%d-%d", l.PremiumRows.From, l.PremiumRows.To),
		EconomyRows:    fmt.Sprintf("%d-%d", economyFrom, l.Rows),
		TotalSeats:     len(seats),
		AvailableSeats: available,
	}
}
