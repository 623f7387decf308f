package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeat_AvailableFor(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	holder := int64(7)
	until := now.Add(5 * time.Minute)
	past := now.Add(-time.Second)

	tests := []struct {
		name   string
		seat   Seat
		user   int64
		expect bool
	}{
		{"available", Seat{Status: SeatStatusAvailable}, 1, true},
		{"held by requester", Seat{Status: SeatStatusTemporarilyReserved, ReservedBy: &holder, ReservedUntil: &until}, 7, true},
		{"held by other", Seat{Status: SeatStatusTemporarilyReserved, ReservedBy: &holder, ReservedUntil: &until}, 8, false},
		{"expired hold", Seat{Status: SeatStatusTemporarilyReserved, ReservedBy: &holder, ReservedUntil: &past}, 8, true},
		{"confirmed", Seat{Status: SeatStatusConfirmed}, 1, false},
		{"blocked", Seat{Status: SeatStatusBlocked}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.seat.AvailableFor(tt.user, now))
		})
	}
}

func TestSeat_HoldExpiresExactlyAtDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var s Seat
	s.Hold(1, now, 5*time.Minute)

	assert.False(t, s.HoldExpired(now.Add(5*time.Minute-time.Nanosecond)))
	assert.False(t, s.AvailableFor(2, now.Add(5*time.Minute-time.Nanosecond)))
	assert.True(t, s.HoldExpired(now.Add(5*time.Minute)))
	assert.True(t, s.AvailableFor(2, now.Add(5*time.Minute)))
}

func TestSeat_ConfirmAndRelease(t *testing.T) {
	now := time.Now()
	var s Seat
	s.Hold(3, now, time.Minute)
	s.Confirm(42, now)

	assert.Equal(t, SeatStatusConfirmed, s.Status)
	assert.Nil(t, s.ReservedBy)
	if assert.NotNil(t, s.ConfirmedBookingID) {
		assert.Equal(t, int64(42), *s.ConfirmedBookingID)
	}

	s.Release(now)
	assert.Equal(t, SeatStatusAvailable, s.Status)
	assert.Nil(t, s.ConfirmedBookingID)
}

func TestSeat_WindowAndAisle(t *testing.T) {
	assert.True(t, Seat{SeatNumber: "12A"}.IsWindowSeat())
	assert.True(t, Seat{SeatNumber: "12F"}.IsWindowSeat())
	assert.True(t, Seat{SeatNumber: "12C"}.IsAisleSeat())
	assert.True(t, Seat{SeatNumber: "12d"}.IsAisleSeat())
	assert.False(t, Seat{SeatNumber: "12B"}.IsWindowSeat())
	assert.False(t, Seat{SeatNumber: "12B"}.IsAisleSeat())
	assert.False(t, Seat{}.IsWindowSeat())
}
