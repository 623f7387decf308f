package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	defaultHandlerAttempts = 3
	defaultRetryDelay      = time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers notification payloads at least once. An offset is
// committed only after the handler succeeds or its attempts run out.
type Consumer struct {
	reader     messageReader
	attempts   int
	retryDelay time.Duration
	log        *logrus.Logger
}

func NewConsumer(brokers []string, groupID, topic string, log *logrus.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}), log)
}

func newConsumer(reader messageReader, log *logrus.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		attempts:   defaultHandlerAttempts,
		retryDelay: defaultRetryDelay,
		log:        logging.OrDiscard(log),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume runs until ctx is done or the reader is closed. Fetch errors are
// retried after a pause. A message whose handler keeps failing is logged and
// committed so it does not block the partition.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, value []byte) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.log.WithError(err).Warn("kafka fetch failed")
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		fields := logrus.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset}
		if err := c.handle(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).WithFields(fields).Error("dropping kafka message")
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).WithFields(fields).Warn("kafka commit failed")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler func(context.Context, []byte) error, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = handler(ctx, msg.Value); err == nil {
			return nil
		}
		if attempt < c.attempts && !c.sleep(ctx) {
			return ctx.Err()
		}
	}
	return err
}

func (c *Consumer) sleep(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
