// Package natsclient provides a managed NATS connection with automatic
// reconnection, graceful drain on close, and connection-state metrics.
//
// The package wraps the standard NATS Go client with the connection
// lifecycle handling the replication layer needs: structured logging of
// connection events, a status surface callers can poll, and a Close that
// drains buffered publishes before tearing down the socket. It is the
// transport used by the replication package to fan queue deliveries out
// to downstream subscribers.
//
// # Connection Lifecycle
//
// The connection moves through Disconnected → Connecting → Connected, with
// Reconnecting entered whenever the server link drops. Reconnection is
// delegated to nats.go itself (infinite retries by default, configurable
// through WithMaxReconnects and WithReconnectWait); the client observes the
// transitions through connection handlers and reflects them in Status,
// logs, and the core connectivity gauges.
//
// # Basic Usage
//
// Creating and connecting:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("current-replicator"),
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
// Publishing:
//
//	if err := client.Publish("current.deliveries", payload); err != nil {
//	    if errors.Is(err, cerrors.ErrNotConnected) {
//	        // connection is down, nats.go is reconnecting in the background
//	    }
//	}
//
// # Graceful Shutdown
//
// Close drains the connection so publishes buffered in the client reach the
// server before the socket closes. The drain is bounded by the configured
// drain timeout (10s by default); past the deadline the connection is closed
// hard and the remaining buffer is dropped. Close is idempotent and safe to
// call from multiple goroutines.
//
// # Metrics
//
// When constructed with WithMetrics, the client keeps two core series
// current: the current_nats_connected gauge (1 while the link is up) and the
// current_nats_reconnects_total counter, incremented on every successful
// reconnect.
package natsclient
