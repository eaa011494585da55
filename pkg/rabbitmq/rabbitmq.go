package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
	// Prefetch bounds how many unacknowledged deliveries a consumer holds.
	Prefetch int
}

// Handler processes one message body. Returning an error requeues the message.
type Handler func(ctx context.Context, body []byte) error

// ErrPoisonMessage marks a body that can never be processed. Such messages are dropped
// instead of requeued.
var ErrPoisonMessage = errors.New("unprocessable message")

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, opens a channel and declares the durable work queue.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Queue == "" {
		return nil, errors.New("rabbitmq: queue name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
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

	_, err = ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	logger.Info("rabbitmq connected", zap.String("queue", cfg.Queue))

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		logger:  logger.Named("rabbitmq"),
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

// Publish sends a persistent JSON message to the work queue.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.channel.Publish(
		"",      // exchange: default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	c.logger.Debug("message published", zap.String("queue", c.queue), zap.Int("bytes", len(body)))
	return nil
}

// Consume delivers messages to handler until ctx is cancelled or the channel closes.
// The returned channel is closed once the consumer goroutine exits.
func (c *Client) Consume(ctx context.Context, handler Handler) (<-chan struct{}, error) {
	if c.channel == nil {
		return nil, errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack: acknowledged manually after handling
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("delivery channel closed", zap.String("queue", c.queue))
					return
				}
				c.dispatch(ctx, msg, handler)
			}
		}
	}()
	return done, nil
}

// Acknowledger is the part of amqp.Delivery dispatch needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) dispatch(ctx context.Context, msg amqp.Delivery, handler Handler) {
	settle(ctx, c.logger, msg.DeliveryTag, msg.Body, msg.Redelivered, msg, handler)
}

// settle runs handler and acknowledges the delivery. A failed first delivery is requeued
// once; a failed redelivery or a poison message is dropped.
func settle(ctx context.Context, logger *zap.Logger, tag uint64, body []byte, redelivered bool, ack Acknowledger, handler Handler) {
	err := handler(ctx, body)
	if err == nil {
		if ackErr := ack.Ack(false); ackErr != nil {
			logger.Error("failed to ack message", zap.Uint64("tag", tag), zap.Error(ackErr))
		}
		return
	}

	requeue := !redelivered && !errors.Is(err, ErrPoisonMessage)
	logger.Warn("message handling failed",
		zap.Uint64("tag", tag), zap.Bool("requeue", requeue), zap.Error(err))
	if nackErr := ack.Nack(false, requeue); nackErr != nil {
		logger.Error("failed to nack message", zap.Uint64("tag", tag), zap.Error(nackErr))
	}
}
