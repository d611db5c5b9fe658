package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends booking events to RabbitMQ.  Each publish dials, declares
// the durable queue and closes again, so a broker outage never leaves a
// broken connection behind in the commit path.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger
}

// NewPublisher returns a publisher for the given broker URL and queue.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if queue == "" {
		queue = BookingConfirmedQueue
	}
	return &Publisher{url: url, queue: queue, log: log.Named("publisher")}
}

// PublishBookingConfirmed publishes ev as a persistent JSON message.  Errors
// are logged and returned; callers treat them as non-fatal.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// Default exchange; the routing key is the queue name.
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq publish failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
		return err
	}
	p.log.Debug("booking event published", zap.String("booking_id", ev.BookingID))
	return nil
}
