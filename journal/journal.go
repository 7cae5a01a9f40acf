// Package journal provides a Pebble-backed append-only record of delivered
// messages, keyed by sequence number for ordered replay.
package journal

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
)

// Options configures a Journal.
type Options struct {
	// Dir is the path to the Pebble database directory. Required.
	Dir string
	// Sync forces a WAL fsync on every committed batch. When false, Pebble
	// group-commits WAL syncs on a short interval instead.
	Sync bool
	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics enables Prometheus export when non-nil.
	Metrics *metric.Registry
}

// Journal is an append-only store of delivered messages. Records are keyed
// by their queue sequence number, so iteration order is delivery order, and
// the gaps between adjacent keys are exactly the drop gaps the consumer
// observed.
//
// All methods are safe for concurrent use.
type Journal struct {
	db      *pebble.DB
	sync    bool
	logger  *slog.Logger
	metrics *journalMetrics

	mu      sync.Mutex
	lastSeq uint64
	hasAny  bool
	closed  bool
}

// Open creates or opens a journal at opts.Dir and recovers the last appended
// sequence from its metadata.
func Open(opts Options) (*Journal, error) {
	if opts.Dir == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "journal", "Open", "Dir required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal")

	po := &pebble.Options{}
	if !opts.Sync {
		// Group-commit WAL syncs for throughput when per-write durability
		// was not requested.
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	db, err := pebble.Open(opts.Dir, po)
	if err != nil {
		return nil, errors.WrapTransient(err, "journal", "Open", "pebble open")
	}

	j := &Journal{
		db:     db,
		sync:   opts.Sync,
		logger: logger,
	}

	if opts.Metrics != nil {
		j.metrics, err = newJournalMetrics(opts.Metrics)
		if err != nil {
			_ = db.Close()
			return nil, errors.WrapTransient(err, "journal", "Open", "metrics registration")
		}
	}

	if err := j.recoverLastSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if j.hasAny {
		logger.Info("journal opened", "dir", opts.Dir, "last_sequence", j.lastSeq)
	} else {
		logger.Info("journal opened", "dir", opts.Dir, "last_sequence", "none")
	}
	return j, nil
}

func (j *Journal) recoverLastSequence() error {
	val, closer, err := j.db.Get(metaLastKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil // empty journal
		}
		return errors.WrapTransient(err, "journal", "Open", "metadata read")
	}
	defer closer.Close()

	if len(val) >= 8 {
		j.lastSeq = binary.BigEndian.Uint64(val[:8])
		j.hasAny = true
		if j.metrics != nil {
			j.metrics.setLastSequence(j.lastSeq)
		}
	}
	return nil
}

// Append writes one entry.
func (j *Journal) Append(e Entry) error {
	return j.AppendBatch([]Entry{e})
}

// AppendBatch writes entries as a single atomic batch and advances the
// journal's last-sequence metadata to the highest sequence in the batch.
func (j *Journal) AppendBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return errors.WrapInvalid(errors.ErrJournalClosed, "journal", "AppendBatch", "append")
	}

	start := time.Now()

	b := j.db.NewBatch()
	defer b.Close()

	last := j.lastSeq
	hasAny := j.hasAny
	var bytes int
	for _, e := range entries {
		if err := b.Set(entryKey(e.Sequence), encodeRecord(e), nil); err != nil {
			return errors.WrapTransient(err, "journal", "AppendBatch", "batch set")
		}
		bytes += len(e.Payload)
		if !hasAny || e.Sequence > last {
			last = e.Sequence
			hasAny = true
		}
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], last)
	if err := b.Set(metaLastKey, meta[:], nil); err != nil {
		return errors.WrapTransient(err, "journal", "AppendBatch", "metadata set")
	}

	syncMode := pebble.NoSync
	if j.sync {
		syncMode = pebble.Sync
	}
	if err := b.Commit(syncMode); err != nil {
		return errors.WrapTransient(err, "journal", "AppendBatch", "batch commit")
	}

	j.lastSeq = last
	j.hasAny = hasAny

	if j.metrics != nil {
		j.metrics.recordAppend(len(entries), bytes, time.Since(start))
		j.metrics.setLastSequence(last)
	}
	return nil
}

// Read returns the entry stored for the given sequence.
func (j *Journal) Read(seq uint64) (Entry, error) {
	val, closer, err := j.db.Get(entryKey(seq))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, errors.Wrap(errors.ErrSequenceNotFound, "journal", "Read",
				fmt.Sprintf("sequence %d", seq))
		}
		return Entry{}, errors.WrapTransient(err, "journal", "Read", "pebble get")
	}
	defer closer.Close()

	total, ts, payload, err := decodeRecord(val)
	if err != nil {
		return Entry{}, errors.WrapFatal(err, "journal", "Read", fmt.Sprintf("record %d", seq))
	}
	return Entry{Sequence: seq, Total: total, Timestamp: ts, Payload: payload}, nil
}

// Scan calls fn for every entry with sequence >= from, in ascending sequence
// order. Returning an error from fn stops the scan and returns that error.
func (j *Journal) Scan(from uint64, fn func(Entry) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: entryKey(from),
		UpperBound: entryUpperBound(),
	})
	if err != nil {
		return errors.WrapTransient(err, "journal", "Scan", "iterator open")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq := entrySeq(iter.Key())
		total, ts, payload, err := decodeRecord(iter.Value())
		if err != nil {
			return errors.WrapFatal(err, "journal", "Scan", fmt.Sprintf("record %d", seq))
		}
		if err := fn(Entry{Sequence: seq, Total: total, Timestamp: ts, Payload: payload}); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return errors.WrapTransient(err, "journal", "Scan", "iteration")
	}
	return nil
}

// LastSequence returns the highest appended sequence and whether the journal
// holds any entries at all.
func (j *Journal) LastSequence() (uint64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSeq, j.hasAny
}

// Close closes the underlying database. The journal rejects appends made
// after Close.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	if err := j.db.Close(); err != nil {
		return errors.WrapTransient(err, "journal", "Close", "pebble close")
	}
	return nil
}
