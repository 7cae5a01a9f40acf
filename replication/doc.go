// Package replication fans queue deliveries out to NATS subscribers.
//
// A Replicator is a queue consumer that wraps each delivery in a JSON
// Envelope and publishes it. Because the queue delivers through a single
// consumer goroutine, envelopes hit the transport in delivery order without
// any coordination here. Sequence numbers from the queue ride along in the
// envelope and in message headers, so subscribers can verify ordering and
// spot shed load on their own.
//
// # Basic Usage
//
// Wire a replicator between a queue and a NATS client:
//
//	client, err := natsclient.NewClient(url, natsclient.WithMetrics(registry))
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//
//	rep, err := replication.NewReplicator(client, replication.JSONEncoder[Event](),
//	    replication.Config{
//	        Subject: "current.events",
//	        Metrics: registry,
//	    })
//	if err != nil {
//	    return err
//	}
//
//	q, err := mq.New[Event](rep, mq.WithCapacity[Event](4096))
//	if err != nil {
//	    return err
//	}
//
// Shutdown order matters: close the queue first so its backlog drains
// through the replicator, then the replicator, then the client so the
// drained publishes flush to the server.
//
//	q.Close()
//	rep.Close()
//	client.Close(ctx)
//
// # Delivery Guarantees
//
// Replication is best-effort by default. Publishes that fail with a
// transient error are retried on the consumer goroutine with the configured
// retry schedule; anything still failing after that is dropped and counted.
// Pair a replicator with a journal persister when the stream must survive
// transport outages, and replay from the journal on the subscriber side.
//
// Setting Config.AtLeastOnce upgrades publishes to JetStream with a broker
// acknowledgment per envelope. The subject must belong to a stream, and the
// publisher must implement AckPublisher (*natsclient.Client does). Each
// delivery then blocks until acked or retries are exhausted, trading
// throughput for durability on the broker.
//
// # Subscribing
//
// Subscribers decode envelopes with DecodeEnvelope and can detect shed load
// from the Gap field without tracking any state:
//
//	sub, _ := conn.Subscribe("current.events", func(msg *nats.Msg) {
//	    env, err := replication.DecodeEnvelope(msg.Data)
//	    if err != nil {
//	        return
//	    }
//	    if env.Gap > 0 {
//	        // env.Gap deliveries were shed upstream
//	    }
//	})
package replication
