package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}

	assert.NotNil(t, NewFlightRepository(pool))
	assert.NotNil(t, NewSeatRepository(pool))
	assert.NotNil(t, NewBookingRepository(pool))
	assert.NotNil(t, NewPassengerRepository(pool))
	assert.NotNil(t, NewPaymentRepository(pool))
	assert.NotNil(t, NewTicketRepository(pool))
	assert.NotNil(t, NewTransactor(pool))

	repos := NewPGRepositories(pool)
	assert.NotNil(t, repos.Tx)
	assert.NotNil(t, repos.Seats)
	assert.NotNil(t, repos.Tickets)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "booking", "SP1"))

	err := mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "booking", "SP1")
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, "booking SP1 not found", err.Error())

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "bookings_code_key"}
	err = mapError(unique, "booking", "SP1")
	var integrity *domain.IntegrityError
	if assert.True(t, errors.As(err, &integrity)) {
		assert.Equal(t, "bookings_code_key", integrity.Constraint)
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other, "booking", "SP1"))
}

func TestConnUsesPoolOutsideTx(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.Equal(t, querier(pool), conn(context.Background(), pool))
}

func TestNonNil(t *testing.T) {
	assert.NotNil(t, nonNil(nil))
	assert.Equal(t, []int64{1}, nonNil([]int64{1}))
}

func TestSchemaDeclaresUniqueness(t *testing.T) {
	assert.True(t, strings.Contains(schema, "UNIQUE (flight_id, seat_number)"))
	assert.True(t, strings.Contains(schema, "UNIQUE (booking_code)"))
	assert.True(t, strings.Contains(schema, "UNIQUE (ticket_code)"))
}
