package mq

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CBNU-BigDataLab/Current/errors"
)

// slotState tracks the occupancy of one buffer slot. A slot only ever moves
// along free -> importing -> ready -> exporting -> free.
type slotState int32

const (
	slotFree slotState = iota
	slotImporting
	slotReady
	slotExporting
)

func (s slotState) String() string {
	switch s {
	case slotFree:
		return "free"
	case slotImporting:
		return "importing"
	case slotReady:
		return "ready"
	case slotExporting:
		return "exporting"
	default:
		return "invalid"
	}
}

// slot is one fixed cell of the circular buffer. Slots are allocated once at
// construction and reused in place; the payload field is zeroed after each
// delivery so released messages become collectable.
type slot[T any] struct {
	sequence uint64
	payload  T
	state    slotState
}

// Queue is a bounded FIFO buffer between producer goroutines and one
// dedicated consumer goroutine.
//
// Producers call Push (or PushWith) from any number of goroutines. A single
// background goroutine, started by New, drains slots strictly in ring order
// and hands each message to the configured Consumer. All slot transitions are
// guarded by one mutex and one condition variable; payload writes and
// deliveries happen with the lock released, so the lock is only ever held for
// O(1) bookkeeping.
type Queue[T any] struct {
	consumer Consumer[T]
	capacity int
	admit    admission[T]
	opts     *queueOptions[T]

	mu          sync.Mutex
	cond        *sync.Cond
	slots       []slot[T]
	head        int // next slot producers attempt to fill
	size        int // slots currently not free
	destructing bool

	// total counts every Push attempt, admitted or not. Admitted messages are
	// stamped with its value from the same critical section that reserves
	// their slot, which is what makes delivered sequence numbers gap-free
	// except across rejected pushes.
	total atomic.Uint64

	stats   *Statistics   // always collected
	metrics *queueMetrics // optional Prometheus export

	done chan struct{} // closed when the consumer goroutine exits
}

// New creates a queue and starts its consumer goroutine. The consumer is
// required; capacity and overflow policy come from options, defaulting to
// DefaultCapacity and Block.
func New[T any](consumer Consumer[T], options ...Option[T]) (*Queue[T], error) {
	if consumer == nil {
		return nil, errors.WrapInvalid(errors.ErrNilConsumer, "mq", "New", "consumer required")
	}

	opts := applyOptions(options...)
	if opts.capacity <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidCapacity, "mq", "New",
			fmt.Sprintf("capacity %d", opts.capacity))
	}

	var admit admission[T]
	switch opts.overflowPolicy {
	case Block:
		admit = blockAdmission[T]{}
	case Drop:
		admit = dropAdmission[T]{}
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidPolicy, "mq", "New",
			opts.overflowPolicy.String())
	}

	// Stats are always collected; Prometheus export is optional.
	stats := NewStatistics()

	var metrics *queueMetrics
	if opts.metricsReg != nil && opts.metricsName != "" {
		var err error
		metrics, err = newQueueMetrics(opts.metricsReg, opts.metricsName)
		if err != nil {
			return nil, errors.WrapTransient(err, "mq", "New", "metrics registration")
		}
		metrics.setCapacity(opts.capacity)
	}

	q := &Queue[T]{
		consumer: consumer,
		capacity: opts.capacity,
		admit:    admit,
		opts:     opts,
		slots:    make([]slot[T], opts.capacity),
		stats:    stats,
		metrics:  metrics,
		done:     make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)

	go q.consumeLoop()

	return q, nil
}

// Push submits one message. It returns true when the message was admitted and
// will be delivered, false when it was rejected: under the Drop policy a full
// buffer rejects immediately, under the Block policy rejection only happens
// when the queue is closing. Callers must treat false the same way regardless
// of cause.
func (q *Queue[T]) Push(message T) bool {
	index, sequence, ok := q.admit.tryAdmit(q)
	if !ok {
		q.rejected()
		if q.opts.dropCallback != nil {
			q.opts.dropCallback(message)
		}
		return false
	}

	// The slot is importing and exclusively ours: fill it outside the lock.
	s := &q.slots[index]
	s.payload = message
	s.sequence = sequence

	q.commitWrite(index)
	return true
}

// PushWith is the in-place variant of Push: construct is invoked only after a
// slot has been acquired, so rejected submissions never pay for building the
// message. The drop callback is not invoked on rejection because no message
// exists to hand it.
func (q *Queue[T]) PushWith(construct func() T) bool {
	if construct == nil {
		panic("mq: PushWith called with nil construct")
	}

	index, sequence, ok := q.admit.tryAdmit(q)
	if !ok {
		q.rejected()
		return false
	}

	s := &q.slots[index]
	s.payload = construct()
	s.sequence = sequence

	q.commitWrite(index)
	return true
}

// reserveLocked marks the slot at head importing, fixes the message's
// sequence number from the attempt counter and advances head. The caller must
// hold mu and have verified the slot at head is free.
func (q *Queue[T]) reserveLocked() (int, uint64) {
	index := q.head
	s := &q.slots[index]
	s.state = slotImporting

	sequence := q.total.Add(1) - 1

	q.head = (q.head + 1) % q.capacity
	q.size++

	q.stats.Admit()
	q.stats.UpdateOccupancy(int64(q.size))
	if q.metrics != nil {
		q.metrics.recordAdmit(q.size, q.capacity)
	}

	return index, sequence
}

// commitWrite flips an imported slot to ready and wakes the consumer.
func (q *Queue[T]) commitWrite(index int) {
	q.mu.Lock()
	s := &q.slots[index]
	if s.state != slotImporting {
		q.mu.Unlock()
		panic(fmt.Sprintf("mq: slot %d is %v on commit, want importing", index, s.state))
	}
	s.state = slotReady
	q.cond.Broadcast()
	q.mu.Unlock()
}

// rejected records a non-admission on the stats and metrics tracks.
func (q *Queue[T]) rejected() {
	q.stats.Reject()
	if q.metrics != nil {
		q.metrics.recordReject()
	}
}

// consumeLoop is the single background task draining the buffer. It owns the
// tail cursor exclusively, waits for the slot at tail to become ready,
// delivers it without holding the lock, then frees the slot and wakes any
// producer blocked on a full buffer.
//
// On teardown the loop keeps draining: it exits only once the destructing
// flag is set and the slot at tail is not ready, so every admitted message is
// delivered before Close returns. Slots still importing at that point are
// abandoned.
func (q *Queue[T]) consumeLoop() {
	defer close(q.done)

	tail := 0
	for {
		q.mu.Lock()
		for q.slots[tail].state != slotReady {
			if q.destructing {
				q.mu.Unlock()
				return
			}
			q.cond.Wait()
		}
		s := &q.slots[tail]
		s.state = slotExporting
		q.mu.Unlock()

		// The slot is exporting and exclusively ours: read it without the lock.
		message := s.payload
		sequence := s.sequence
		total := q.total.Load()

		var started time.Time
		if q.metrics != nil {
			started = time.Now()
		}
		q.consumer.Consume(message, sequence, total)
		if q.metrics != nil {
			q.metrics.recordDeliveryDuration(time.Since(started))
		}

		q.mu.Lock()
		if s.state != slotExporting {
			q.mu.Unlock()
			panic(fmt.Sprintf("mq: slot %d is %v after delivery, want exporting", tail, s.state))
		}
		var zero T
		s.payload = zero // release the delivered value
		s.state = slotFree
		q.size--

		q.stats.Deliver()
		q.stats.UpdateOccupancy(int64(q.size))
		if q.metrics != nil {
			q.metrics.recordFree(q.size, q.capacity)
		}

		q.cond.Broadcast()
		q.mu.Unlock()

		tail = (tail + 1) % q.capacity
	}
}

// Close begins teardown and blocks until the consumer goroutine has drained
// every already-admitted message and exited. Producers blocked under the
// Block policy wake up and report non-admission. Close is idempotent and safe
// to call from multiple goroutines; every call waits for the drain.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	if !q.destructing {
		q.destructing = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()

	<-q.done
	return nil
}

// Capacity returns the fixed slot count of the buffer.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Size returns the number of slots currently occupied, including the slot
// being delivered, if any.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Policy returns the queue's overflow policy.
func (q *Queue[T]) Policy() OverflowPolicy {
	return q.opts.overflowPolicy
}

// Total returns the number of Push attempts since construction. Sequence
// numbers are stamped from this counter, so Total also bounds the next
// sequence number to be assigned.
func (q *Queue[T]) Total() uint64 {
	return q.total.Load()
}

// Stats returns queue statistics (always available for observability).
func (q *Queue[T]) Stats() *Statistics {
	return q.stats
}
