package replication

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
	"github.com/CBNU-BigDataLab/Current/pkg/retry"
)

// Publisher is the transport a Replicator publishes through. *natsclient.Client
// satisfies it; tests substitute in-memory fakes.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// AckPublisher publishes with a broker acknowledgment. Publishers that also
// implement it can back the at-least-once mode; *natsclient.Client does,
// through JetStream.
type AckPublisher interface {
	PublishMsgAck(ctx context.Context, msg *nats.Msg) error
}

// Encoder converts a queue message into an envelope payload.
type Encoder[T any] func(message T) ([]byte, error)

// DefaultSubject is where deliveries are published unless configured otherwise.
const DefaultSubject = "current.deliveries"

// Config holds Replicator settings. The zero value is usable: deliveries go
// to DefaultSubject with quick retries and the default logger.
type Config struct {
	// Subject is the NATS subject envelopes are published to.
	Subject string

	// Pipeline labels the produced-message counter so several replicators
	// can share one registry. Defaults to "default".
	Pipeline string

	// Retry bounds publish retries for transient failures. Zero value means
	// retry.Quick. Publishing happens on the queue's consumer goroutine, so
	// long retry schedules stall delivery; keep attempts short.
	Retry retry.Config

	// AtLeastOnce waits for a broker acknowledgment per envelope instead of
	// fire-and-forget. Requires a publisher that implements AckPublisher and
	// a subject bound to a JetStream stream.
	AtLeastOnce bool

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// Replicator forwards queue deliveries to NATS as JSON envelopes. It is a
// queue consumer: Consume runs on the queue's single consumer goroutine, so
// envelopes reach the transport in delivery order. Messages that cannot be
// published after retries are counted and dropped; replication is the
// best-effort leg, the journal is the durable one.
type Replicator[T any] struct {
	publisher    Publisher
	ackPublisher AckPublisher // non-nil in at-least-once mode
	encode       Encoder[T]
	subject      string
	pipeline     string
	retryCfg     retry.Config
	logger       *slog.Logger
	core         *metric.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	lastSeq uint64
	seen    bool

	published atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
}

// NewReplicator creates a replicator that encodes messages with encode and
// publishes them through publisher.
func NewReplicator[T any](publisher Publisher, encode Encoder[T], cfg Config) (*Replicator[T], error) {
	if publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "replication", "NewReplicator", "publisher required")
	}
	if encode == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "replication", "NewReplicator", "encoder required")
	}

	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Pipeline == "" {
		cfg.Pipeline = "default"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Quick()
		cfg.Retry.MaxAttempts = 3
		cfg.Retry.MaxDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Replicator[T]{
		publisher: publisher,
		encode:    encode,
		subject:   cfg.Subject,
		pipeline:  cfg.Pipeline,
		retryCfg:  cfg.Retry,
		logger:    cfg.Logger.With("component", "replication", "subject", cfg.Subject),
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.AtLeastOnce {
		ap, ok := publisher.(AckPublisher)
		if !ok {
			cancel()
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
				"replication", "NewReplicator", "at-least-once mode needs an acknowledging publisher")
		}
		r.ackPublisher = ap
	}
	if cfg.Metrics != nil {
		r.core = cfg.Metrics.CoreMetrics()
	}
	return r, nil
}

// Consume publishes one delivery. It satisfies the queue consumer contract:
// sequence is the delivery's admission number and total counts every push
// attempted so far. Gaps between consecutive sequences mean the queue shed
// load; the gap size rides along in the envelope.
func (r *Replicator[T]) Consume(message T, sequence, total uint64) {
	if r.closed.Load() {
		r.dropped.Add(1)
		return
	}

	var gap uint64
	r.mu.Lock()
	if r.seen && sequence > r.lastSeq+1 {
		gap = sequence - r.lastSeq - 1
	}
	r.lastSeq = sequence
	r.seen = true
	r.mu.Unlock()

	if gap > 0 {
		r.logger.Warn("sequence gap before delivery",
			"sequence", sequence,
			"missed", gap)
		if r.core != nil {
			r.core.RecordSequenceGap("replication", gap)
		}
	}

	payload, err := r.encode(message)
	if err != nil {
		r.dropped.Add(1)
		r.logger.Error("encode failed, message dropped",
			"sequence", sequence,
			"error", err)
		if r.core != nil {
			r.core.RecordError("replication", errors.Classify(err).String())
		}
		return
	}

	msg, err := newEnvelope(sequence, total, gap, payload).encode(r.subject)
	if err != nil {
		r.dropped.Add(1)
		r.logger.Error("envelope encoding failed, message dropped",
			"sequence", sequence,
			"error", err)
		if r.core != nil {
			r.core.RecordError("replication", errors.Classify(err).String())
		}
		return
	}

	err = retry.Do(r.ctx, r.retryCfg, func() error {
		if r.ackPublisher != nil {
			return r.ackPublisher.PublishMsgAck(r.ctx, msg)
		}
		return r.publisher.PublishMsg(msg)
	})
	if err != nil {
		r.dropped.Add(1)
		r.logger.Error("publish failed, message dropped",
			"sequence", sequence,
			"error", err)
		if r.core != nil {
			r.core.RecordError("replication", errors.Classify(err).String())
		}
		return
	}

	r.published.Add(1)
	if r.core != nil {
		r.core.RecordMessageProduced(r.pipeline, "nats")
	}
}

// Published returns how many envelopes reached the transport.
func (r *Replicator[T]) Published() uint64 {
	return r.published.Load()
}

// Dropped returns how many deliveries were lost to encode or publish failures.
func (r *Replicator[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops the replicator. In-flight retry backoff is cancelled and later
// deliveries are dropped. Close the queue first so every buffered delivery
// has been consumed; the transport connection is the caller's to close.
func (r *Replicator[T]) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.cancel()
	r.logger.Info("replicator closed",
		"published", r.published.Load(),
		"dropped", r.dropped.Load())
	return nil
}

// JSONEncoder returns an Encoder that marshals messages to JSON, the right
// default for struct payloads.
func JSONEncoder[T any]() Encoder[T] {
	return func(message T) ([]byte, error) {
		return json.Marshal(message)
	}
}
