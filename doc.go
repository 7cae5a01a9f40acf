// Package current provides a bounded in-memory message queue with strict
// ordered delivery, plus the collaborators a production deployment needs
// around it: durable journaling, NATS replication, configuration, metrics,
// and a load-testing CLI.
//
// # Architecture
//
// The queue in package mq is the core. Everything else plugs into its one
// seam, the Consumer contract: a single goroutine owned by the queue calls
//
//	Consume(message, sequence, total)
//
// exactly once per admitted message, in admission order, never concurrently.
// Collaborators are just Consumer implementations:
//
//	┌───────────┐  Push   ┌──────────────┐  Consume  ┌───────────────┐
//	│ producers ├────────►│  mq.Queue    ├──────────►│ any Consumer  │
//	└───────────┘         │ (bounded,    │           ├───────────────┤
//	                      │  FIFO slots) │           │ journal.      │
//	                      └──────────────┘           │  Persister    │──► pebble
//	                                                 │ replication.  │
//	                                                 │  Replicator   │──► NATS
//	                                                 └───────────────┘
//
// # Ordering and Ownership
//
// Every push attempt consumes one sequence number, admitted or not, so gaps
// in delivered sequences measure shed load. Admitted messages are delivered
// in sequence order; total reports the attempt count at admission time.
// Payloads are written into queue slots outside the queue lock, so large
// messages do not serialize producers.
//
// When the queue is full, the overflow policy decides: Block parks the
// producer until a slot frees, Drop rejects immediately. Close drains every
// admitted message before returning, so a clean shutdown loses nothing that
// was admitted.
//
// Shutdown order follows ownership: close the queue first (drains into the
// consumer), then the consumer (flushes its sink), then the sink's storage
// or transport.
//
// # Packages
//
//   - mq: the bounded queue, overflow policies, and delivery statistics
//   - journal: pebble-backed durable log of deliveries, with a batching
//     Persister consumer and sequential replay
//   - replication: publishes deliveries to NATS as enveloped JSON with
//     sequence headers and gap accounting
//   - natsclient: managed NATS connection with lifecycle status, draining
//     shutdown, and container-backed test helpers
//   - config: layered JSON configuration with environment overrides
//   - errors: error wrapping with component context and severity classes
//   - metric: Prometheus registry, core metric families, and the exposition
//     server
//   - pkg/retry: exponential backoff for transient failures
//   - pkg/loadgen: concurrent producer groups for load tests
//   - cmd/current: the bench and replay commands
//
// # Quick Start
//
//	q, err := mq.New[Event](consumer,
//		mq.WithCapacity[Event](4096),
//		mq.WithOverflowPolicy[Event](mq.Drop),
//	)
//	if err != nil {
//		return err
//	}
//	defer q.Close()
//
//	admitted := q.Push(Event{ID: 1})
//
// See the package documentation of mq, journal, and replication for the
// full pipeline.
package current
