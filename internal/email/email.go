package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/notify"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers booking notifications. Messages are rendered and written to
// the log; there is no SMTP transport.
type Sender struct {
	log *logrus.Logger
}

func NewSender(log *logrus.Logger) *Sender {
	return &Sender{log: logging.OrDiscard(log)}
}

// Render returns ok=false for events that carry no recipient.
func Render(event notify.Event) (Message, bool) {
	if event.Email == "" {
		return Message{}, false
	}

	var subject string
	switch event.Type {
	case notify.EventBookingCreated:
		subject = fmt.Sprintf("Booking %s received", event.BookingCode)
	case notify.EventBookingConfirmed:
		subject = fmt.Sprintf("Booking %s confirmed", event.BookingCode)
	case notify.EventBookingCancelled:
		subject = fmt.Sprintf("Booking %s cancelled", event.BookingCode)
	case notify.EventBookingExpired:
		subject = fmt.Sprintf("Booking %s expired", event.BookingCode)
	case notify.EventPaymentFailed:
		subject = fmt.Sprintf("Payment for booking %s failed", event.BookingCode)
	case notify.EventTicketsIssued:
		subject = fmt.Sprintf("Your tickets for booking %s", event.BookingCode)
	default:
		subject = fmt.Sprintf("Booking %s update", event.BookingCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Booking: %s\n", event.BookingCode)
	fmt.Fprintf(&b, "Status: %s\n", event.Status)
	if event.TotalAmount > 0 {
		fmt.Fprintf(&b, "Total: %d\n", event.TotalAmount)
	}
	if len(event.TicketCodes) > 0 {
		fmt.Fprintf(&b, "Tickets: %s\n", strings.Join(event.TicketCodes, ", "))
	}

	return Message{To: event.Email, Subject: subject, Body: b.String()}, true
}

func (s *Sender) Send(ctx context.Context, event notify.Event) error {
	msg, ok := Render(event)
	if !ok {
		s.log.WithField("booking_code", event.BookingCode).Debug("skip notification without recipient")
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
		"event":   event.Type,
	}).Info(msg.Body)
	return nil
}

// Handle decodes a raw queue payload. Malformed payloads are logged and
// acknowledged so they are not redelivered.
func (s *Sender) Handle(ctx context.Context, value []byte) error {
	var event notify.Event
	if err := json.Unmarshal(value, &event); err != nil {
		s.log.WithError(err).Warn("decode notification event")
		return nil
	}
	return s.Send(ctx, event)
}
