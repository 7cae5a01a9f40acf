// Package loadgen drives a push target with a group of concurrent producers.
package loadgen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cerrors "github.com/CBNU-BigDataLab/Current/errors"
)

// ErrAlreadyRun is returned when a group is run a second time. Groups are
// single-use; build a new one for another run.
var ErrAlreadyRun = errors.New("producer group already run")

// GenerateFunc builds the message a producer pushes. Producers are numbered
// from zero; index counts that producer's messages from zero.
type GenerateFunc[T any] func(producer, index int) T

// PushFunc submits one message and reports whether it was admitted.
type PushFunc[T any] func(T) bool

// Group runs a fixed set of concurrent producers against a push target,
// counting admissions and rejections. Each producer generates its own
// messages, so the target sees the interleaving a real multi-producer
// workload would cause.
type Group[T any] struct {
	producers   int
	perProducer int
	rate        int // messages/sec per producer, 0 = unthrottled
	generate    GenerateFunc[T]
	push        PushFunc[T]
	logger      *slog.Logger

	lifecycleMu sync.Mutex
	ran         bool

	admitted atomic.Uint64
	rejected atomic.Uint64
}

// Option configures a Group.
type Option[T any] func(*Group[T]) error

// WithRate throttles each producer to n messages per second. Zero disables
// throttling.
func WithRate[T any](n int) Option[T] {
	return func(g *Group[T]) error {
		if n < 0 {
			return cerrors.WrapInvalid(cerrors.ErrInvalidConfig,
				"loadgen", "WithRate", "rate must not be negative, got %d", n)
		}
		g.rate = n
		return nil
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(g *Group[T]) error {
		if logger != nil {
			g.logger = logger
		}
		return nil
	}
}

// New creates a producer group. Every producer pushes perProducer messages
// built by generate, so a completed run attempts producers*perProducer
// pushes in total.
func New[T any](producers, perProducer int, generate GenerateFunc[T], push PushFunc[T], opts ...Option[T]) (*Group[T], error) {
	if producers <= 0 {
		return nil, cerrors.WrapInvalid(cerrors.ErrInvalidConfig,
			"loadgen", "New", "producers must be positive, got %d", producers)
	}
	if perProducer <= 0 {
		return nil, cerrors.WrapInvalid(cerrors.ErrInvalidConfig,
			"loadgen", "New", "messages per producer must be positive, got %d", perProducer)
	}
	if generate == nil {
		return nil, cerrors.WrapInvalid(cerrors.ErrMissingConfig,
			"loadgen", "New", "generate function required")
	}
	if push == nil {
		return nil, cerrors.WrapInvalid(cerrors.ErrMissingConfig,
			"loadgen", "New", "push function required")
	}

	g := &Group[T]{
		producers:   producers,
		perProducer: perProducer,
		generate:    generate,
		push:        push,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, cerrors.Wrap(err, "loadgen", "New", "applying option")
		}
	}

	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "loadgen")

	return g, nil
}

// Run starts every producer and blocks until all have finished or the
// context is cancelled. A cancelled context stops producers between pushes;
// a push already in flight completes. Run may be called once.
func (g *Group[T]) Run(ctx context.Context) (Stats, error) {
	g.lifecycleMu.Lock()
	if g.ran {
		g.lifecycleMu.Unlock()
		return Stats{}, ErrAlreadyRun
	}
	g.ran = true
	g.lifecycleMu.Unlock()

	var interval time.Duration
	if g.rate > 0 {
		interval = time.Second / time.Duration(g.rate)
		if interval <= 0 {
			interval = time.Nanosecond
		}
	}

	start := time.Now()

	var wg sync.WaitGroup
	for p := 0; p < g.producers; p++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			g.produce(ctx, producer, interval)
		}(p)
	}
	wg.Wait()

	stats := Stats{
		Producers:   g.producers,
		PerProducer: g.perProducer,
		Admitted:    g.admitted.Load(),
		Rejected:    g.rejected.Load(),
		Elapsed:     time.Since(start),
	}

	g.logger.Debug("producer group finished",
		"admitted", stats.Admitted,
		"rejected", stats.Rejected,
		"elapsed", stats.Elapsed)

	return stats, nil
}

func (g *Group[T]) produce(ctx context.Context, producer int, interval time.Duration) {
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for i := 0; i < g.perProducer; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		if g.push(g.generate(producer, i)) {
			g.admitted.Add(1)
		} else {
			g.rejected.Add(1)
		}
	}
}

// Admitted returns the number of pushes accepted so far. Safe to call while
// Run is in flight.
func (g *Group[T]) Admitted() uint64 {
	return g.admitted.Load()
}

// Rejected returns the number of pushes refused so far.
func (g *Group[T]) Rejected() uint64 {
	return g.rejected.Load()
}

// Stats summarizes one completed run.
type Stats struct {
	Producers   int           `json:"producers"`
	PerProducer int           `json:"per_producer"`
	Admitted    uint64        `json:"admitted"`
	Rejected    uint64        `json:"rejected"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Attempted returns the number of pushes the run made. A run that was not
// cancelled attempts Producers * PerProducer.
func (s Stats) Attempted() uint64 {
	return s.Admitted + s.Rejected
}
