// Package amqpqueue implements queue.Sender/queue.Receiver over RabbitMQ,
// using github.com/rabbitmq/amqp091-go. It reconnects with exponential
// backoff (github.com/cenkalti/backoff/v4) so a worker survives a broker
// restart without operator intervention, per spec.md §4.1.
package amqpqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/notifico/notifico/internal/queue"
)

// Connection owns a single AMQP connection and redials it on failure. All
// Queues sharing a Connection share its reconnect lifecycle.
type Connection struct {
	url         string
	containerID string
	log         *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	closing bool
}

// NewConnection dials url immediately, identifying itself to the broker as
// containerID (spec.md §6.4: "<prefix>-<process-uuid>").
func NewConnection(ctx context.Context, url, containerID string, log *slog.Logger) (*Connection, error) {
	c := &Connection{url: url, containerID: containerID, log: log}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	go c.watch()
	return c, nil
}

func (c *Connection) dial(ctx context.Context) error {
	cfg := amqp.Config{Properties: amqp.NewConnectionProperties()}
	cfg.Properties.SetClientConnectionName(c.containerID)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 60 * time.Second
	bo.MaxElapsedTime = 0 // retry forever, bounded by ctx

	return backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		conn, err := amqp.DialConfig(c.url, cfg)
		if err != nil {
			c.log.Warn("amqp dial failed, retrying", "error", err)
			return err
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		return nil
	}, backoff.WithContext(bo, ctx))
}

// watch blocks until the connection closes unexpectedly, then redials.
func (c *Connection) watch() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		err := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		c.mu.Lock()
		closing := c.closing
		c.mu.Unlock()
		if closing {
			return
		}
		c.log.Warn("amqp connection lost, reconnecting", "error", err)
		if dialErr := c.dial(context.Background()); dialErr != nil {
			c.log.Error("amqp reconnect gave up", "error", dialErr)
			return
		}
	}
}

// Close shuts down the connection and stops reconnect attempts.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Connection) channel() (*amqp.Channel, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("amqpqueue: connection not established")
	}
	return conn.Channel()
}

// Queue is a durable queue bound to a Connection, usable as both a
// queue.Sender (publisher) and queue.Receiver (consumer).
type Queue struct {
	conn *Connection
	name string

	mu   sync.Mutex
	ch   *amqp.Channel
	msgs <-chan amqp.Delivery
}

// Declare opens a channel and declares a durable, non-exclusive queue named
// name, ready for Send/Receive.
func Declare(conn *Connection, name string) (*Queue, error) {
	ch, err := conn.channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("amqpqueue: declare %s: %w", name, err)
	}
	return &Queue{conn: conn, name: name, ch: ch}, nil
}

// Kind reports queue.KindJSON: AMQP bodies are always encoded bytes.
func (q *Queue) Kind() queue.Kind { return queue.KindJSON }

// SendBytes publishes body as a persistent message.
func (q *Queue) SendBytes(ctx context.Context, body []byte) error {
	q.mu.Lock()
	ch := q.ch
	q.mu.Unlock()
	return ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// SendObject marshals v to JSON and publishes it.
func (q *Queue) SendObject(ctx context.Context, v any) error {
	return queue.Send(ctx, sendOnly{q}, v)
}

type sendOnly struct{ *Queue }

// ReceiveBytes consumes one message from the queue, lazily starting the
// consumer on first call.
func (q *Queue) ReceiveBytes(ctx context.Context) ([]byte, queue.AckHandle, error) {
	q.mu.Lock()
	if q.msgs == nil {
		msgs, err := q.ch.ConsumeWithContext(ctx, q.name, q.conn.containerID+"-receiver", false, false, false, false, nil)
		if err != nil {
			q.mu.Unlock()
			return nil, nil, fmt.Errorf("amqpqueue: consume %s: %w", q.name, err)
		}
		q.msgs = msgs
	}
	msgs := q.msgs
	q.mu.Unlock()

	select {
	case d, ok := <-msgs:
		if !ok {
			return nil, nil, fmt.Errorf("amqpqueue: consumer channel closed for %s", q.name)
		}
		return d.Body, deliveryAck{d}, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// ReceiveObject returns the delivery's raw JSON body ([]byte) as the value,
// since AMQP queues always carry bytes on the wire; queue.Receive decodes it.
func (q *Queue) ReceiveObject(ctx context.Context) (any, queue.AckHandle, error) {
	body, ack, err := q.ReceiveBytes(ctx)
	return body, ack, err
}

// deliveryAck adapts an amqp.Delivery to queue.AckHandle, mapping
// queue.Outcome onto the broker's ack/nack/requeue semantics.
type deliveryAck struct {
	d amqp.Delivery
}

func (a deliveryAck) Ack(context.Context) error { return a.d.Ack(false) }

func (a deliveryAck) Nack(_ context.Context, requeue bool) error {
	return a.d.Nack(false, requeue)
}
