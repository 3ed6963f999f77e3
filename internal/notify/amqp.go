// Package notify publishes monitor events to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rusenback/idlemon/internal/model"
)

// Config holds the broker settings
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

func DefaultConfig() Config {
	return Config{
		Exchange:   "idlemon",
		RoutingKey: "server.idle",
	}
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes each event as a persistent JSON message on a topic
// exchange. The routing key is the configured prefix followed by the event
// kind, e.g. server.idle.shutdown.
type AMQPNotifier struct {
	conn       *amqp.Connection
	channel    publisher
	closer     func() error
	exchange   string
	routingKey string
	now        func() time.Time
}

// NewAMQPNotifier dials the broker and declares the exchange
func NewAMQPNotifier(cfg Config) (*AMQPNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // exchange name
		"topic",      // exchange type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	n := newAMQPNotifier(ch, cfg)
	n.conn = conn
	n.closer = ch.Close
	return n, nil
}

func newAMQPNotifier(ch publisher, cfg Config) *AMQPNotifier {
	return &AMQPNotifier{
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		now:        time.Now,
	}
}

// Notify publishes the event
func (n *AMQPNotifier) Notify(ctx context.Context, event model.Event) error {
	msg, err := n.message(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := n.channel.PublishWithContext(
		ctx,
		n.exchange,
		n.key(event.Kind),
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Kind, err)
	}
	return nil
}

func (n *AMQPNotifier) key(kind model.EventKind) string {
	if n.routingKey == "" {
		return string(kind)
	}
	return n.routingKey + "." + string(kind)
}

func (n *AMQPNotifier) message(event model.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now(),
		Type:         string(event.Kind),
	}, nil
}

// Close closes the channel and the connection
func (n *AMQPNotifier) Close() error {
	var errs []error
	if n.closer != nil {
		errs = append(errs, n.closer())
	}
	if n.conn != nil && !n.conn.IsClosed() {
		errs = append(errs, n.conn.Close())
	}
	return errors.Join(errs...)
}
