package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

func TestDispatcher_PublishesToEveryTopic(t *testing.T) {
	pub := &MockPublisher{}
	d := NewDispatcher(pub, []string{"booking-events", "", "booking-notifications"}, nil)

	b := &domain.Booking{ID: 1, Code: "SP202612345", Status: domain.BookingStatusPending, TotalAmount: 100}
	event := BookingEvent(EventBookingCreated, b, time.Now())

	pub.On("Publish", mock.Anything, "booking-events", "SP202612345", event).Return(nil).Once()
	pub.On("Publish", mock.Anything, "booking-notifications", "SP202612345", event).Return(nil).Once()

	d.Notify(context.Background(), event)
	d.Wait()

	pub.AssertExpectations(t)
}

func TestDispatcher_SwallowsErrorsAndIgnoresCancellation(t *testing.T) {
	pub := &MockPublisher{}
	d := NewDispatcher(pub, []string{"booking-events"}, nil, WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub.On("Publish", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), "booking-events", "SP1", mock.Anything).
		Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		d.Notify(ctx, Event{Type: EventBookingCancelled, BookingCode: "SP1"})
		d.Wait()
	})
	pub.AssertExpectations(t)
}

func TestDispatcher_NoTopicsIsNoop(t *testing.T) {
	pub := &MockPublisher{}
	d := NewDispatcher(pub, nil, nil)
	d.Notify(context.Background(), Event{Type: EventBookingCreated})
	d.Wait()
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublisherFunc(t *testing.T) {
	var topics []string
	pub := PublisherFunc(func(_ context.Context, topic, key string, _ any) error {
		topics = append(topics, topic+"/"+key)
		return nil
	})

	d := NewDispatcher(pub, []string{"booking-events"}, nil)
	d.Notify(context.Background(), Event{Type: EventBookingConfirmed, BookingCode: "SP9"})
	d.Wait()

	assert.Equal(t, []string{"booking-events/SP9"}, topics)
}
