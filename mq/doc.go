// Package mq implements the bounded in-memory message queue at the core of
// Current's event pipelines.
//
// # Overview
//
// A Queue decouples any number of producer goroutines from exactly one
// consumer goroutine through a fixed ring of slots. Producers reserve a slot,
// fill it outside the lock, and commit it; the consumer drains slots strictly
// in ring order and hands each message to user code through the Consumer
// contract. The queue never allocates after construction: slots are reused in
// place for the queue's whole lifetime.
//
// # Quick Start
//
//	sink := mq.ConsumerFunc[string](func(msg string, seq, total uint64) {
//	    fmt.Printf("%d/%d: %s\n", seq, total, msg)
//	})
//
//	q, err := mq.New[string](sink,
//	    mq.WithCapacity[string](256),
//	    mq.WithOverflowPolicy[string](mq.Drop),
//	)
//	if err != nil {
//	    return err
//	}
//	defer q.Close()
//
//	if !q.Push("hello") {
//	    // rejected: buffer full under Drop, or queue closing
//	}
//
// # Slot State Machine
//
// Each slot moves along a single cycle:
//
//	free -> importing -> ready -> exporting -> free
//
// A producer's reservation flips the slot at head from free to importing and
// advances head; the payload write then happens with no lock held, which
// bounds the time producers can delay each other to O(1) bookkeeping
// regardless of message size. Committing flips importing to ready. The
// consumer waits for the slot at tail to become ready, flips it to exporting,
// delivers without the lock, then frees it and advances. A partially written
// message is therefore never observable: the ready state is the only gate the
// consumer trusts.
//
// # Overflow Policies
//
// Two admission strategies share all of the buffer and consumer machinery:
//
//   - Block (default): Push suspends on the queue's condition variable until
//     a slot frees or Close begins. Nothing is ever lost; backpressure
//     propagates to producers.
//   - Drop: Push returns false immediately when no slot is free. The
//     attempt counter still advances, so the consumer can measure the loss as
//     a gap between consecutive delivered sequence numbers.
//
// Under both policies a false return also occurs once teardown has begun.
// Callers must treat false identically regardless of cause; the queue
// deliberately does not distinguish "full" from "closing" in its signal.
//
// # Sequence Numbers
//
// The queue stamps each admitted message with the value of its attempt
// counter, fixed in the same critical section that reserves the slot. The
// counter advances on every Push attempt, admitted or rejected, starting at
// zero. A delivered message with sequence s arriving immediately after one
// with sequence r therefore announces exactly s-r-1 rejected messages in
// between. The delivery contract also passes the attempt counter's value at
// delivery time, which callers can use as a running total of offered load.
//
// # Ordering Guarantees
//
// Delivery order always matches slot order, which matches admission order.
// Within one producer goroutine, submission order is preserved. Across
// concurrent producers no global order is promised: admission order is
// whichever producer wins the lock. No fairness is promised among producers
// blocked on a full buffer.
//
// # Ownership
//
// Push copies the message into the slot; delivery copies it back out and the
// queue zeroes its slot copy once Consume returns. The consumer may retain
// the delivered value (including reference types) indefinitely - the queue
// reuses slot cells, never the delivered values themselves.
//
// # Shutdown
//
// Close sets the destructing flag, wakes every waiter and then joins the
// consumer goroutine. The consumer keeps draining until no ready slot remains
// at its tail, so every admitted message is delivered before Close returns.
// Producers blocked under the Block policy unblock and report non-admission.
// A message still being written (importing) when the drain passes its slot is
// abandoned silently; that data-loss window is bounded to one message per
// producer caught mid-write.
//
// # Observability
//
// Statistics (admitted, rejected, delivered, producer waits, occupancy highs)
// are always collected through atomic counters and available via Stats().
// Prometheus export is optional: pass WithMetrics(registry, name) to publish
// counters, occupancy gauges and a delivery-duration histogram under the
// current_mq_* namespace, labeled by queue name.
//
// # Error Handling
//
// Push reports admission with a bare bool and never returns errors or panics
// for overflow or shutdown. New validates its inputs and returns classified
// errors for a nil consumer, non-positive capacity or unknown policy. An
// impossible slot state observed at a transition is a synchronization bug and
// panics.
//
// # Performance Characteristics
//
//   - Push: one mutex acquisition per attempt plus an O(1) state flip; the
//     payload copy happens outside the lock.
//   - Delivery: one mutex acquisition before and after Consume; the Consume
//     call itself runs lock-free, so a slow consumer only stalls its own slot.
//   - Steady state allocates nothing; the ring is sized once at construction.
package mq
