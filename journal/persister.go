package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
	"github.com/CBNU-BigDataLab/Current/pkg/retry"
)

// Encoder turns a message into the payload bytes stored in the journal.
type Encoder[T any] func(T) ([]byte, error)

// JSONEncoder returns an Encoder that marshals messages as JSON.
func JSONEncoder[T any]() Encoder[T] {
	return func(message T) ([]byte, error) {
		return json.Marshal(message)
	}
}

// PersisterConfig configures a Persister.
type PersisterConfig struct {
	// BatchSize is the maximum entries committed per batch. Default 64.
	BatchSize int
	// FlushInterval bounds how long an entry waits before being committed
	// even when the batch is not full. Default 50ms.
	FlushInterval time.Duration
	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics records sequence gaps and absorbed errors when non-nil.
	Metrics *metric.Registry
}

// Persister journals queue deliveries. It satisfies the queue's Consumer
// interface: each delivered message is encoded and buffered, and a background
// goroutine commits buffered entries in batches.
//
// Consume never blocks on storage and never fails the delivery path: encode
// and commit errors are logged and counted, then absorbed. Sequence gaps
// between consecutive deliveries are surfaced the same way.
type Persister[T any] struct {
	journal *Journal
	encode  Encoder[T]
	logger  *slog.Logger
	core    *metric.Metrics

	batchSize int
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending *queue.Queue
	lastSeq uint64
	seen    bool

	kick chan struct{}
	done chan struct{}
}

// NewPersister creates a persister appending to j and starts its flush
// goroutine. Callers close the queue first, then the persister, then the
// journal, so every delivered message reaches storage.
func NewPersister[T any](j *Journal, encode Encoder[T], cfg PersisterConfig) (*Persister[T], error) {
	if j == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "journal", "NewPersister", "journal required")
	}
	if encode == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "journal", "NewPersister", "encoder required")
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 50 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal")

	var core *metric.Metrics
	if cfg.Metrics != nil {
		core = cfg.Metrics.CoreMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Persister[T]{
		journal:   j,
		encode:    encode,
		logger:    logger,
		core:      core,
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
		ctx:       ctx,
		cancel:    cancel,
		pending:   queue.New(),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Consume buffers one delivery for journaling.
func (p *Persister[T]) Consume(message T, sequence, total uint64) {
	p.mu.Lock()
	var missed uint64
	if p.seen && sequence > p.lastSeq+1 {
		missed = sequence - p.lastSeq - 1
	}
	p.lastSeq = sequence
	p.seen = true
	p.mu.Unlock()

	if missed > 0 {
		p.logger.Warn("sequence gap before delivery", "sequence", sequence, "missed", missed)
		if p.core != nil {
			p.core.RecordSequenceGap("journal", missed)
		}
	}

	payload, err := p.encode(message)
	if err != nil {
		p.logger.Error("encode failed, entry dropped", "sequence", sequence, "error", err)
		if p.core != nil {
			p.core.RecordError("journal", errors.Classify(err).String())
		}
		return
	}

	p.mu.Lock()
	p.pending.Add(Entry{
		Sequence:  sequence,
		Total:     total,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	n := p.pending.Length()
	p.mu.Unlock()

	if n >= p.batchSize {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

func (p *Persister[T]) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.flush()
			return
		case <-p.kick:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

// flush commits every buffered entry, batch by batch.
func (p *Persister[T]) flush() {
	for {
		batch := p.drainBatch()
		if len(batch) == 0 {
			return
		}

		cfg := retry.Config{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     100 * time.Millisecond,
			Multiplier:   2.0,
			Jitter:       true,
		}
		err := retry.Do(p.ctx, cfg, func() error {
			return p.journal.AppendBatch(batch)
		})
		if err != nil {
			p.logger.Error("journal append failed, batch dropped",
				"entries", len(batch), "error", err)
			if p.core != nil {
				p.core.RecordError("journal", errors.Classify(err).String())
			}
		}
	}
}

func (p *Persister[T]) drainBatch() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.pending.Length()
	if n == 0 {
		return nil
	}
	if n > p.batchSize {
		n = p.batchSize
	}
	batch := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, p.pending.Remove().(Entry))
	}
	return batch
}

// Pending returns how many entries wait for the next commit.
func (p *Persister[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Length()
}

// Close flushes buffered entries and stops the flush goroutine. It does not
// close the journal, which the caller owns.
func (p *Persister[T]) Close() error {
	p.cancel()
	<-p.done
	return nil
}
