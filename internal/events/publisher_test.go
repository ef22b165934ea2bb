package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/facility-booking/internal/application"
)

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type channelStub struct {
	published []publishedMessage
	err       error
	closed    int
}

func (c *channelStub) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *channelStub) Close() error {
	c.closed++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAMQPPublisher_Publish(t *testing.T) {
	t.Parallel()

	ch := &channelStub{}
	publisher := newPublisher(ch, DefaultExchange, quietLogger())
	event := application.BookingEvent{
		Type:       application.EventBookingCreated,
		BookingID:  "b1",
		CourtID:    "court-1",
		Date:       "2024-06-01",
		StartTime:  "08:00",
		EndTime:    "08:30",
		Status:     "active",
		OccurredAt: time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC),
	}

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.published))
	}

	got := ch.published[0]
	if got.exchange != DefaultExchange || got.key != application.EventBookingCreated {
		t.Fatalf("unexpected routing %s/%s", got.exchange, got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent || got.msg.ContentType != "application/json" {
		t.Fatalf("expected persistent json message, got %+v", got.msg)
	}

	var decoded application.BookingEvent
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if decoded.BookingID != "b1" || decoded.StartTime != "08:00" {
		t.Fatalf("unexpected body %+v", decoded)
	}
}

func TestAMQPPublisher_PublishFailure(t *testing.T) {
	t.Parallel()

	broker := errors.New("channel closed by broker")
	publisher := newPublisher(&channelStub{err: broker}, DefaultExchange, quietLogger())

	err := publisher.Publish(context.Background(), application.BookingEvent{Type: application.EventBookingCancelled})
	if !errors.Is(err, broker) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestAMQPPublisher_Close(t *testing.T) {
	t.Parallel()

	ch := &channelStub{}
	publisher := newPublisher(ch, DefaultExchange, quietLogger())

	if err := publisher.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if ch.closed != 1 {
		t.Fatalf("expected channel closed once, got %d", ch.closed)
	}
	if err := publisher.Publish(context.Background(), application.BookingEvent{Type: application.EventBookingCreated}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDial_RequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := Dial(" ", "", quietLogger()); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
