// Package amqp carries the two message flows between the web app, the
// scheduler and the notifier: mirror-sync requests after local writes
// and reminder dispatch requests from the scheduler.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Queue names double as routing keys on the direct exchange.
const (
	QueueMirrorSync       = "subtrack.mirror.sync"
	QueueReminderDispatch = "subtrack.reminder.dispatch"
)

// errDecode marks messages that can never be processed; they are
// rejected without requeue.
var errDecode = errors.New("decode message")

type Client struct {
	url          string
	exchangeName string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
}

func NewClient(url, exchangeName string) (*Client, error) {
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
		url:          url,
		exchangeName: exchangeName,
		conn:         conn,
		channel:      channel,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{QueueMirrorSync, QueueReminderDispatch} {
		_, err = c.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Routing key matches the queue name on a direct exchange.
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// PublishMirrorSync queues a mirror refresh. Satisfies
// service.SyncPublisher.
func (c *Client) PublishMirrorSync(ctx context.Context, revision int64) error {
	msg := NewMirrorSyncMessage(revision)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, QueueMirrorSync, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published mirror sync message",
		"revision", revision,
		"exchange", c.exchangeName,
		"queue", QueueMirrorSync)
	return nil
}

// PublishReminderDispatch queues one reminder pass.
func (c *Client) PublishReminderDispatch(ctx context.Context, days int, force bool) error {
	msg := NewReminderDispatchMessage(days, force)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, QueueReminderDispatch, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published reminder dispatch message",
		"days", days,
		"force", force,
		"exchange", c.exchangeName,
		"queue", QueueReminderDispatch)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
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

// ConsumeMirrorSync delivers mirror sync messages to the handler until
// the context is cancelled or the connection drops.
func (c *Client) ConsumeMirrorSync(ctx context.Context, handler func(*MirrorSyncMessage) error) error {
	return c.consume(ctx, QueueMirrorSync, func(body []byte) error {
		msg, err := MirrorSyncMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errDecode, err)
		}
		return handler(msg)
	})
}

// ConsumeReminderDispatch delivers reminder dispatch messages to the
// handler until the context is cancelled or the connection drops.
func (c *Client) ConsumeReminderDispatch(ctx context.Context, handler func(*ReminderDispatchMessage) error) error {
	return c.consume(ctx, QueueReminderDispatch, func(body []byte) error {
		msg, err := ReminderDispatchMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errDecode, err)
		}
		return handler(msg)
	})
}

func (c *Client) consume(ctx context.Context, queue string, handle func([]byte) error) error {
	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}

			if err := handle(delivery.Body); err != nil {
				if errors.Is(err, errDecode) {
					slog.ErrorContext(ctx, "Dropping unreadable message", "queue", queue, "error", err)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}
				slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "error", err)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
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
