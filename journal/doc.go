// Package journal provides durable storage for delivered messages.
//
// # Overview
//
// The journal is a Pebble-backed append-only log keyed by queue sequence
// number. Because sequences are assigned at admission and delivered in order,
// the journal's key order is delivery order, and a missing key range is
// exactly a run of rejected pushes.
//
// Two layers make up the package:
//
//   - Journal: the storage engine. Open, Append/AppendBatch, Read, Scan,
//     LastSequence, Close.
//   - Persister: a queue consumer that encodes deliveries and commits them to
//     a Journal in background batches.
//
// # Basic Usage
//
//	j, err := journal.Open(journal.Options{Dir: "/var/lib/current/journal"})
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//
//	p, err := journal.NewPersister(j, journal.JSONEncoder[event](), journal.PersisterConfig{})
//	if err != nil {
//	    return err
//	}
//
//	q, err := mq.New[event](p, mq.WithCapacity[event](1024))
//	if err != nil {
//	    return err
//	}
//
//	// ... push messages ...
//
//	q.Close()  // drains deliveries into the persister
//	p.Close()  // commits buffered entries
//	j.Close()
//
// # Replay
//
//	err := j.Scan(0, func(e journal.Entry) error {
//	    fmt.Printf("seq=%d total=%d bytes=%d\n", e.Sequence, e.Total, len(e.Payload))
//	    return nil
//	})
//
// # Record Format
//
// Each record is stored as varint headerLen | header | payload |
// crc32c(header|payload). The header carries the attempt counter and the
// delivery timestamp. Decoding verifies the checksum; a mismatch is a fatal
// error, truncation is invalid input.
//
// # Durability
//
// Options.Sync selects per-batch WAL fsync. With Sync off, Pebble
// group-commits WAL syncs on a 5ms interval, trading a bounded window of
// recent entries for much higher throughput.
//
// # Error Handling
//
// The Persister never fails the delivery path. Encode errors drop the single
// entry; commit errors are retried with backoff and then drop the batch. Both
// are logged and counted through the shared metric registry.
package journal
