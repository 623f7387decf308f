// Package notify dispatches booking lifecycle events without blocking the
// caller. Delivery failures are logged and dropped.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventBookingCancelled EventType = "booking_cancelled"
	EventBookingExpired   EventType = "booking_expired"
	EventBookingConfirmed EventType = "booking_confirmed"
	EventPaymentFailed    EventType = "payment_failed"
	EventTicketsIssued    EventType = "tickets_issued"
)

type Event struct {
	Type        EventType `json:"type"`
	BookingID   int64     `json:"booking_id"`
	BookingCode string    `json:"booking_code"`
	Status      string    `json:"status"`
	UserID      *int64    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	TotalAmount int64     `json:"total_amount"`
	PaymentID   int64     `json:"payment_id,omitempty"`
	TicketCodes []string  `json:"ticket_codes,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingEvent builds an event carrying the booking's identity and status.
func BookingEvent(t EventType, b *domain.Booking, at time.Time) Event {
	return Event{
		Type:        t,
		BookingID:   b.ID,
		BookingCode: b.Code,
		Status:      string(b.Status),
		UserID:      b.UserID,
		Email:       b.ContactEmail,
		TotalAmount: b.TotalAmount,
		OccurredAt:  at,
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic, key string, payload any) error

func (f PublisherFunc) Publish(ctx context.Context, topic, key string, payload any) error {
	return f(ctx, topic, key, payload)
}

type Dispatcher struct {
	publisher Publisher
	topics    []string
	timeout   time.Duration
	log       *logrus.Logger
	wg        sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// NewDispatcher publishes every event to each of topics, keyed by booking code.
func NewDispatcher(publisher Publisher, topics []string, log *logrus.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		timeout:   5 * time.Second,
		log:       logging.OrDiscard(log),
	}
	for _, t := range topics {
		if t != "" {
			d.topics = append(d.topics, t)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if d.publisher == nil || len(d.topics) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		for _, topic := range d.topics {
			if err := d.publisher.Publish(ctx, topic, event.BookingCode, event); err != nil {
				d.log.WithError(err).WithFields(logrus.Fields{
					"topic":        topic,
					"event":        event.Type,
					"booking_code": event.BookingCode,
				}).Warn("failed to publish notification")
			}
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

var (
	_ Notifier = (*Dispatcher)(nil)
	_ Notifier = Noop{}
)
