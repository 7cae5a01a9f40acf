package mq

import (
	"github.com/CBNU-BigDataLab/Current/metric"
)

// Option configures queue behavior using the functional options pattern.
type Option[T any] func(*queueOptions[T])

// queueOptions holds internal configuration for queue instances.
// Stats are ALWAYS collected - they are not optional.
// Metrics are optional and exposed via WithMetrics().
type queueOptions[T any] struct {
	capacity       int
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]

	// metricsReg is optional - if provided, queue stats are also exposed as Prometheus metrics
	metricsReg *metric.Registry

	// metricsName is used as the queue label for Prometheus metrics
	metricsName string
}

// WithCapacity sets the buffer slot count. Defaults to DefaultCapacity.
// Non-positive values are rejected by New.
func WithCapacity[T any](capacity int) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.capacity = capacity
	}
}

// WithOverflowPolicy sets the behavior of Push on a full buffer.
// Defaults to Block if not specified.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithMetrics enables Prometheus metrics export for queue statistics.
// If registry is nil or name is empty, this option is ignored.
func WithMetrics[T any](registry *metric.Registry, name string) Option[T] {
	return func(opts *queueOptions[T]) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

// WithDropCallback sets a callback invoked with each message rejected by
// Push. The callback runs on the producer's goroutine, outside the queue
// lock.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.dropCallback = callback
	}
}

// applyOptions applies functional options to create final queue configuration.
// This is an internal helper used by New.
func applyOptions[T any](options ...Option[T]) *queueOptions[T] {
	opts := &queueOptions[T]{
		capacity:       DefaultCapacity,
		overflowPolicy: Block,
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
