// Package mq provides a bounded, in-memory FIFO queue that decouples producer
// goroutines from a single dedicated consumer goroutine.
//
// The queue hands each admitted message to the consumer exactly once, in
// admission order, stamped with a monotonically increasing sequence number.
// When the buffer is full, the configured overflow policy either rejects new
// messages (Drop) or suspends the producer until a slot frees (Block).
// Statistics are always collected; Prometheus metrics are optional via
// WithMetrics().
package mq

// Consumer receives messages drained from a queue. Consume is invoked exactly
// once per admitted message, strictly in admission order, from the queue's
// single consumer goroutine.
//
// The sequence argument is the message's stamp from the queue's attempt
// counter; gaps between consecutive sequence values measure messages rejected
// under the Drop policy. The total argument is the value of the attempt
// counter at delivery time.
//
// Consume must not panic. The queue has no error channel for delivery;
// failure handling belongs to the consumer itself. The delivered message is
// the consumer's to keep: the queue releases its own reference once Consume
// returns.
type Consumer[T any] interface {
	Consume(message T, sequence uint64, total uint64)
}

// ConsumerFunc adapts a plain function to the Consumer interface.
type ConsumerFunc[T any] func(message T, sequence uint64, total uint64)

// Consume calls f.
func (f ConsumerFunc[T]) Consume(message T, sequence uint64, total uint64) {
	f(message, sequence, total)
}

// OverflowPolicy defines how Push behaves when the buffer is full.
type OverflowPolicy int

const (
	// Block suspends the producer until a slot frees or the queue closes.
	Block OverflowPolicy = iota

	// Drop rejects the new message immediately when no slot is free.
	Drop
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "Block"
	case Drop:
		return "Drop"
	default:
		return "Unknown"
	}
}

// DropCallback is called with the rejected message whenever a Push is not
// admitted. It runs on the producer's goroutine, outside the queue lock.
type DropCallback[T any] func(message T)

// DefaultCapacity is the buffer slot count used when WithCapacity is not given.
const DefaultCapacity = 1024
