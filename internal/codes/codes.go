// Package codes generates human-readable booking and ticket codes.
// Uniqueness is enforced by the store; callers retry on collision.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	DefaultBookingPrefix = "SP"
	DefaultTicketPrefix  = "SKY"

	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Generator struct {
	bookingPrefix string
	ticketPrefix  string
}

func NewGenerator(bookingPrefix, ticketPrefix string) *Generator {
	if bookingPrefix == "" {
		bookingPrefix = DefaultBookingPrefix
	}
	if ticketPrefix == "" {
		ticketPrefix = DefaultTicketPrefix
	}
	return &Generator{bookingPrefix: bookingPrefix, ticketPrefix: ticketPrefix}
}

// BookingCode returns prefix + four-digit year + five random digits, e.g. SP202612345.
func (g *Generator) BookingCode(now time.Time) (string, error) {
	suffix, err := randomString(digits, 5)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d%s", g.bookingPrefix, now.Year(), suffix), nil
}

// TicketCode returns prefix + YYMMDD + six random [A-Z0-9], e.g. SKY260125ABC123.
func (g *Generator) TicketCode(now time.Time) (string, error) {
	suffix, err := randomString(alphanumeric, 6)
	if err != nil {
		return "", err
	}
	return g.ticketPrefix + now.Format("060102") + suffix, nil
}

func randomString(alphabet string, n int) (string, error) {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
