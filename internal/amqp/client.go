// Package amqp publishes and consumes ledger events over RabbitMQ. The
// server publishes an event after every committed operation or card-set
// mutation; the report worker consumes them.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishOperationEvent publishes an operation mutation event.
func (c *Client) PublishOperationEvent(ctx context.Context, ev OperationEvent) error {
	body, err := encodeEnvelope(ev.Type, ev)
	if err != nil {
		return err
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published operation event",
		"type", ev.Type,
		"operation_id", ev.OperationID,
		"kind", ev.Kind)
	return nil
}

// PublishCardsChanged publishes the card set after a ledger mutation.
func (c *Client) PublishCardsChanged(ctx context.Context, ev CardsChangedEvent) error {
	body, err := encodeEnvelope(CardsChanged, ev)
	if err != nil {
		return err
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published cards changed event", "cards", len(ev.Cards))
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Consume delivers queued events to the handlers until ctx is cancelled.
// A handler error nacks the delivery back onto the queue; an undecodable
// message is dropped.
func (c *Client) Consume(ctx context.Context, opHandler func(OperationEvent) error, cardHandler func(CardsChangedEvent) error) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := c.dispatch(ctx, delivery.Body, opHandler, cardHandler); err != nil {
				slog.ErrorContext(ctx, "Failed to handle event", "error", err)
				delivery.Nack(false, true) // requeue
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, body []byte, opHandler func(OperationEvent) error, cardHandler func(CardsChangedEvent) error) error {
	env, err := decodeEnvelope(body)
	if err != nil {
		// Malformed payloads would requeue forever; log and drop.
		slog.ErrorContext(ctx, "Dropping undecodable event", "error", err)
		return nil
	}

	switch env.Type {
	case OperationCreated, OperationUpdated, OperationDeleted:
		var ev OperationEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			slog.ErrorContext(ctx, "Dropping malformed operation event", "error", err)
			return nil
		}
		ev.Type = env.Type
		return opHandler(ev)
	case CardsChanged:
		var ev CardsChangedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			slog.ErrorContext(ctx, "Dropping malformed cards event", "error", err)
			return nil
		}
		return cardHandler(ev)
	default:
		slog.WarnContext(ctx, "Dropping event of unknown type", "type", env.Type)
		return nil
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
