package mq

// admission is the strategy seam between the two overflow policies. Both
// implementations share the queue's slot reservation; they differ only in
// what happens when the slot at head is not free.
//
// tryAdmit either reserves a slot, returning its index and the stamped
// sequence number, or reports non-admission. The attempt counter advances on
// every call, admitted or not, which is what lets consumers infer dropped
// messages from sequence gaps.
type admission[T any] interface {
	tryAdmit(q *Queue[T]) (index int, sequence uint64, ok bool)
}

// dropAdmission rejects immediately when the slot at head is unavailable.
type dropAdmission[T any] struct{}

func (dropAdmission[T]) tryAdmit(q *Queue[T]) (int, uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destructing || q.slots[q.head].state != slotFree {
		// Rejected attempts still consume a sequence number.
		q.total.Add(1)
		return 0, 0, false
	}

	index, sequence := q.reserveLocked()
	return index, sequence, true
}

// blockAdmission suspends the producer on the queue's condition variable
// until the slot at head frees or teardown begins. Teardown wins even when a
// slot is simultaneously free, so producers never sneak messages into a
// closing queue.
//
// No fairness is promised across producers blocked on the same full buffer:
// whichever goroutine wins the lock after a broadcast admits next. Per-
// producer submission order still holds because each producer submits
// sequentially.
type blockAdmission[T any] struct{}

func (blockAdmission[T]) tryAdmit(q *Queue[T]) (int, uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.destructing && q.slots[q.head].state != slotFree {
		q.stats.ProducerWait()
		q.cond.Wait()
	}

	if q.destructing {
		q.total.Add(1)
		return 0, 0, false
	}

	index, sequence := q.reserveLocked()
	return index, sequence, true
}
