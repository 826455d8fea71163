// Package inproc implements an in-process queue.Channel backed by a
// buffered Go channel. It offers no durability: messages are lost on
// process restart, matching spec.md's Non-goal of crash-persistence
// without AMQP.
package inproc

import (
	"context"

	"github.com/notifico/notifico/internal/queue"
)

// noopAck satisfies queue.AckHandle with a no-op disposition, since an
// in-process channel has nothing to acknowledge.
type noopAck struct{}

func (noopAck) Ack(context.Context) error          { return nil }
func (noopAck) Nack(context.Context, bool) error   { return nil }

// Queue is a bounded in-process queue.Sender and queue.Receiver over a
// boxed-value channel. Values pass through unchanged (queue.KindObject);
// bytes sent with SendBytes are stored as-is, and ReceiveBytes only accepts
// values that were enqueued as []byte.
type Queue struct {
	ch chan any
}

// New creates a Queue with the given buffer capacity. A capacity of 1
// matches spec.md §5's events-queue sizing; pipeline queues use a large
// capacity to approximate the unbounded queue the original assumes.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan any, capacity)}
}

// Kind reports queue.KindObject: in-process sends pass Go values through
// without a marshal round trip.
func (q *Queue) Kind() queue.Kind { return queue.KindObject }

// SendObject enqueues v, blocking until there is room or ctx is done.
func (q *Queue) SendObject(ctx context.Context, v any) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendBytes enqueues raw bytes as-is; a Receive side expecting KindObject
// semantics should prefer queue.Send/Receive generics over this directly.
func (q *Queue) SendBytes(ctx context.Context, body []byte) error {
	return q.SendObject(ctx, body)
}

// ReceiveObject dequeues the next value, blocking until one is available
// or ctx is done.
func (q *Queue) ReceiveObject(ctx context.Context) (any, queue.AckHandle, error) {
	select {
	case v := <-q.ch:
		return v, noopAck{}, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// ReceiveBytes dequeues the next value and type-asserts it to []byte.
func (q *Queue) ReceiveBytes(ctx context.Context) ([]byte, queue.AckHandle, error) {
	v, ack, err := q.ReceiveObject(ctx)
	if err != nil {
		return nil, nil, err
	}
	body, ok := v.([]byte)
	if !ok {
		return nil, ack, errNotBytes
	}
	return body, ack, nil
}

// Len reports the number of messages currently buffered, for metrics and
// backpressure introspection.
func (q *Queue) Len() int { return len(q.ch) }

type queueError string

func (e queueError) Error() string { return string(e) }

const errNotBytes = queueError("inproc: queued value is not []byte")
