// Package events delivers booking lifecycle events to RabbitMQ. Every event is
// published to a durable topic exchange with the event type as routing key, so
// consumers can bind "booking.*" or a single transition.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/facility-booking/internal/application"
)

// DefaultExchange is the topic exchange used when none is configured.
const DefaultExchange = "facility.bookings"

// ErrClosed reports a publish attempted after Close.
var ErrClosed = errors.New("events: publisher closed")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes booking events as persistent JSON messages.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *slog.Logger
	closed   bool
}

var _ application.EventPublisher = (*AMQPPublisher)(nil)

// Dial connects to the broker, opens a channel and declares the exchange.
func Dial(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("events: amqp url is required")
	}
	if strings.TrimSpace(exchange) == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	publisher := newPublisher(ch, exchange, logger)
	publisher.conn = conn
	return publisher, nil
}

func newPublisher(ch channel, exchange string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With("component", "events", "exchange", exchange),
	}
}

// Publish sends the event. The routing key is the event type.
func (p *AMQPPublisher) Publish(ctx context.Context, event application.BookingEvent) error {
	if p == nil {
		return fmt.Errorf("AMQPPublisher is nil")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.BookingID + ":" + event.Type,
		Timestamp:    event.OccurredAt.UTC(),
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.DebugContext(ctx, "booking event published", "event_type", event.Type, "booking_id", event.BookingID)
	return nil
}

// Close releases the channel and connection. It is safe to call twice.
func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements application.EventPublisher.
func (NopPublisher) Publish(context.Context, application.BookingEvent) error { return nil }

// Close implements io.Closer.
func (NopPublisher) Close() error { return nil }
