// Package rabbitmq publishes and consumes book mutation events over AMQP.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"librarian/internal/models"

	"github.com/rs/zerolog"
	amqp "github.com/streadway/amqp"
)

// channel is the subset of *amqp.Channel the client uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	log     zerolog.Logger
	mu      sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ and declares the durable event queue.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c, err := newClient(ch, cfg.Queue, log)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn
	c.log.Info().Str("queue", cfg.Queue).Msg("RabbitMQ client connected")
	return c, nil
}

func newClient(ch channel, queue string, log zerolog.Logger) (*Client, error) {
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return &Client{
		channel: ch,
		queue:   queue,
		log:     log.With().Str("component", "rabbitmq").Logger(),
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishBookEvent sends event to the queue as persistent JSON.
func (c *Client) PublishBookEvent(ctx context.Context, event models.BookEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := encode(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	c.log.Debug().Str("event", event.Type).Str("book_id", event.BookID).Msg("book event published")
	return nil
}

// ConsumeBookEvents delivers each event to handler until the channel closes.
// Messages the handler accepts are acked; undecodable ones are dropped and
// handler errors requeue the message.
func (c *Client) ConsumeBookEvents(handler func(models.BookEvent) error) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handle(msg, handler)
		}
		c.log.Info().Msg("book event consumer stopped")
	}()
	return nil
}

// acknowledger is satisfied by amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handle(msg amqp.Delivery, handler func(models.BookEvent) error) {
	c.dispatch(msg.Body, msg.DeliveryTag, &msg, handler)
}

func (c *Client) dispatch(body []byte, tag uint64, ack acknowledger, handler func(models.BookEvent) error) {
	event, err := decode(body)
	if err != nil {
		c.log.Warn().Err(err).Uint64("tag", tag).Msg("dropping malformed book event")
		if nackErr := ack.Nack(false, false); nackErr != nil {
			c.log.Error().Err(nackErr).Uint64("tag", tag).Msg("failed to nack message")
		}
		return
	}

	if err := handler(event); err != nil {
		c.log.Error().Err(err).Uint64("tag", tag).Msg("error processing book event")
		if nackErr := ack.Nack(false, true); nackErr != nil {
			c.log.Error().Err(nackErr).Uint64("tag", tag).Msg("failed to nack message")
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		c.log.Error().Err(ackErr).Uint64("tag", tag).Msg("failed to ack message")
	}
}

func encode(event models.BookEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal book event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
	}, nil
}

func decode(body []byte) (models.BookEvent, error) {
	var event models.BookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.BookEvent{}, fmt.Errorf("failed to unmarshal book event: %w", err)
	}
	if event.Type == "" || event.BookID == "" {
		return models.BookEvent{}, errors.New("book event is missing type or bookId")
	}
	return event, nil
}
