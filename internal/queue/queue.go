// Package queue defines the transport-agnostic message queue abstraction
// the pipeline engine runs on top of. Concrete implementations live in
// internal/queue/inproc (single-process, no durability) and
// internal/queue/amqpqueue (RabbitMQ-backed, durable).
package queue

import (
	"context"
	"encoding/json"
)

// Outcome is the disposition a Receiver applies to a dequeued message.
type Outcome int

const (
	// Accepted permanently removes the message from the queue.
	Accepted Outcome = iota
	// Rejected discards the message without requeueing (poison message).
	Rejected
	// Released returns the message to the queue for another attempt.
	Released
)

// Kind selects how Send/Receive (de)serialize a value onto the wire.
type Kind int

const (
	// KindJSON marshals/unmarshals the value as JSON.
	KindJSON Kind = iota
	// KindObject passes the value through unchanged (in-process only).
	KindObject
)

// AckHandle is returned by Receive and lets the caller settle a message's
// disposition once it has been processed.
type AckHandle interface {
	Ack(ctx context.Context) error
	Nack(ctx context.Context, requeue bool) error
}

// Channel is the common capability both Sender and Receiver build on: it
// knows which wire encoding its messages use.
type Channel interface {
	Kind() Kind
}

// Sender publishes raw bytes (or, for in-process queues, boxed values) onto
// a queue.
type Sender interface {
	Channel
	SendBytes(ctx context.Context, body []byte) error
	SendObject(ctx context.Context, v any) error
}

// Receiver consumes raw bytes (or boxed values) from a queue, returning an
// AckHandle the caller uses to settle the message.
type Receiver interface {
	Channel
	ReceiveBytes(ctx context.Context) ([]byte, AckHandle, error)
	ReceiveObject(ctx context.Context) (any, AckHandle, error)
}

// Send encodes v according to s's Kind and publishes it. Go generics stand
// in for the extension-method pattern the original uses on its
// SenderChannel/ReceiverChannel traits.
func Send[T any](ctx context.Context, s Sender, v T) error {
	switch s.Kind() {
	case KindObject:
		return s.SendObject(ctx, v)
	default:
		body, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return s.SendBytes(ctx, body)
	}
}

// Receive dequeues one message from r and decodes it into T.
func Receive[T any](ctx context.Context, r Receiver) (T, AckHandle, error) {
	var zero T
	switch r.Kind() {
	case KindObject:
		v, ack, err := r.ReceiveObject(ctx)
		if err != nil {
			return zero, nil, err
		}
		out, ok := v.(T)
		if !ok {
			return zero, ack, errTypeMismatch
		}
		return out, ack, nil
	default:
		body, ack, err := r.ReceiveBytes(ctx)
		if err != nil {
			return zero, nil, err
		}
		var out T
		if err := json.Unmarshal(body, &out); err != nil {
			return zero, ack, err
		}
		return out, ack, nil
	}
}

var errTypeMismatch = errQueue("queue: received object of unexpected type")

type errQueue string

func (e errQueue) Error() string { return string(e) }
