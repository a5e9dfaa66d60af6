// Package event publishes attempt lifecycle events to RabbitMQ.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// RoutingKey returns the topic routing key of an event type, e.g.
// "attempt.suspended".
func RoutingKey(typ model.ProctorEventType) string {
	return "attempt." + string(typ)
}

// Publisher sends lifecycle events to a topic exchange. A Publisher built
// from an empty URL is disabled and drops every event.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	enabled  bool
	log      zerolog.Logger
}

// NewPublisher connects and declares a durable topic exchange.
func NewPublisher(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	log = log.With().Str("component", "event_publisher").Logger()
	if url == "" {
		log.Info().Msg("AMQP_URL is empty, lifecycle event publishing is disabled")
		return &Publisher{log: log}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("RabbitMQ connected")
	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		enabled:  true,
		log:      log,
	}, nil
}

// Enabled reports whether events are actually sent.
func (p *Publisher) Enabled() bool { return p.enabled }

// Publish sends ev with its type as routing key.
func (p *Publisher) Publish(ctx context.Context, ev *model.ProctorEvent) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange,
		RoutingKey(ev.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.RecordedAt,
			MessageId:    ev.AttemptID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKey(ev.Type), err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
