// Package amqp publishes and consumes JSON messages on durable RabbitMQ queues.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	declared map[string]bool
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, declared: make(map[string]bool)}, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}

// Publish sends payload to queue through the default exchange. key is
// carried as the message id.
func (p *Publisher) Publish(ctx context.Context, queue, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[queue] {
		if err := declare(p.ch, queue); err != nil {
			return fmt.Errorf("rabbitmq: declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type Consumer struct {
	conn  *amqp.Connection
	queue string
}

func NewConsumer(url, queue string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	return &Consumer{conn: conn, queue: queue}, nil
}

// Consume delivers message bodies to handler until ctx is done. A message is
// acked when handler succeeds and requeued once otherwise.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, c.queue); err != nil {
		return fmt.Errorf("rabbitmq: declare %s: %w", c.queue, err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery channel closed")
			}
			if err := handler(ctx, d.Body); err != nil {
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
