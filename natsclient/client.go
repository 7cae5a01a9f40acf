// Package natsclient manages the NATS connection used to replicate queue
// deliveries to downstream subscribers.
package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns a human-readable status name for logs.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client manages a single NATS connection with automatic reconnection,
// graceful drain on close, and connection state visible to callers.
// All methods are safe for concurrent use.
type Client struct {
	url        string
	clientName string
	logger     *slog.Logger
	core       *metric.Metrics

	// Connection behavior, set through options before Connect.
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream

	status     atomic.Int32
	reconnects atomic.Int64

	closeMu sync.Mutex
	closed  bool
}

// NewClient creates a NATS client for the given server URL. The client does
// not connect until Connect is called.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natsclient", "NewClient", "server URL required")
	}

	c := &Client{
		url:           url,
		clientName:    "current",
		maxReconnects: -1, // reconnect forever
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "natsclient", "NewClient", "applying option")
		}
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "natsclient")

	return c, nil
}

// Connect establishes the NATS connection. It blocks until the connection is
// ready, the context is cancelled, or the dial timeout elapses.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	type result struct {
		conn *nats.Conn
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		conn, err := nats.Connect(c.url, c.connectionOptions()...)
		resultCh <- result{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		c.setStatus(StatusDisconnected)
		// The dial goroutine still owns the connection; reap it when it lands.
		go func() {
			if r := <-resultCh; r.conn != nil {
				r.conn.Close()
			}
		}()
		return errors.WrapTransient(ctx.Err(), "natsclient", "Connect", "connecting to %s", c.url)
	case r := <-resultCh:
		if r.err != nil {
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(r.err, "natsclient", "Connect", "connecting to %s", c.url)
		}

		js, err := jetstream.New(r.conn)
		if err != nil {
			r.conn.Close()
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(err, "natsclient", "Connect", "creating JetStream context")
		}

		c.mu.Lock()
		c.conn = r.conn
		c.js = js
		c.mu.Unlock()

		c.setStatus(StatusConnected)
		if c.core != nil {
			c.core.RecordNATSStatus(true)
		}
		c.logger.Info("connected to NATS",
			"url", c.url,
			"max_reconnects", c.maxReconnects)
		return nil
	}
}

// connectionOptions builds the nats.go options for this client, wiring the
// connection event handlers into logging and metrics.
func (c *Client) connectionOptions() []nats.Option {
	return []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.setStatus(StatusReconnecting)
			if c.core != nil {
				c.core.RecordNATSStatus(false)
			}
			if err != nil {
				c.logger.Warn("NATS connection lost", "error", err)
			} else {
				c.logger.Warn("NATS connection lost")
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.setStatus(StatusConnected)
			c.reconnects.Add(1)
			if c.core != nil {
				c.core.RecordNATSStatus(true)
				c.core.RecordNATSReconnect()
			}
			c.logger.Info("NATS reconnected",
				"url", conn.ConnectedUrl(),
				"reconnects", c.reconnects.Load())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.setStatus(StatusClosed)
			if c.core != nil {
				c.core.RecordNATSStatus(false)
			}
			c.logger.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				c.logger.Error("NATS async error", "subject", sub.Subject, "error", err)
			} else {
				c.logger.Error("NATS async error", "error", err)
			}
		}),
	}
}

// Conn returns the underlying NATS connection, or nil before Connect.
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// SetConnection injects an established connection. Intended for tests that
// provide a connection without going through Connect.
func (c *Client) SetConnection(conn *nats.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	if conn != nil {
		c.setStatus(StatusConnected)
	}
}

// JetStream returns the JetStream context created during Connect.
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errors.ErrNotConnected
	}
	return c.js, nil
}

// Publish sends data to the given subject.
func (c *Client) Publish(subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.ErrNotConnected
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "natsclient", "Publish", "publishing to %s", subject)
	}
	return nil
}

// PublishMsg sends a prepared message, preserving its headers.
func (c *Client) PublishMsg(msg *nats.Msg) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.ErrNotConnected
	}
	if err := conn.PublishMsg(msg); err != nil {
		return errors.WrapTransient(err, "natsclient", "PublishMsg", "publishing to %s", msg.Subject)
	}
	return nil
}

// PublishMsgAck publishes through JetStream and waits for the broker
// acknowledgment, giving at-least-once semantics. The subject must belong
// to a stream.
func (c *Client) PublishMsgAck(ctx context.Context, msg *nats.Msg) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return errors.ErrNotConnected
	}
	if _, err := js.PublishMsg(ctx, msg); err != nil {
		return errors.WrapTransient(err, "natsclient", "PublishMsgAck", "publishing to %s", msg.Subject)
	}
	return nil
}

// Flush waits for all buffered publishes to reach the server.
func (c *Client) Flush() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.ErrNotConnected
	}
	if err := conn.Flush(); err != nil {
		return errors.WrapTransient(err, "natsclient", "Flush", "flushing pending messages")
	}
	return nil
}

// RTT measures the round-trip time to the server.
func (c *Client) RTT() (time.Duration, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return 0, errors.ErrNotConnected
	}
	rtt, err := conn.RTT()
	if err != nil {
		return 0, errors.WrapTransient(err, "natsclient", "RTT", "measuring round-trip time")
	}
	return rtt, nil
}

// Close drains the connection so buffered publishes are delivered before the
// socket is torn down. It waits at most the drain timeout, then closes hard.
// Close is idempotent.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()

	if conn == nil {
		c.setStatus(StatusClosed)
		return nil
	}

	drained := make(chan error, 1)
	go func() {
		drained <- conn.Drain()
	}()

	select {
	case err := <-drained:
		c.setStatus(StatusClosed)
		if c.core != nil {
			c.core.RecordNATSStatus(false)
		}
		if err != nil {
			return errors.WrapTransient(err, "natsclient", "Close", "draining connection")
		}
		c.logger.Info("NATS connection drained")
		return nil
	case <-time.After(c.drainTimeout):
		conn.Close()
		c.setStatus(StatusClosed)
		if c.core != nil {
			c.core.RecordNATSStatus(false)
		}
		c.logger.Warn("drain timed out, connection closed hard", "timeout", c.drainTimeout)
		return nil
	case <-ctx.Done():
		conn.Close()
		c.setStatus(StatusClosed)
		if c.core != nil {
			c.core.RecordNATSStatus(false)
		}
		return errors.WrapTransient(ctx.Err(), "natsclient", "Close", "draining connection")
	}
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

// IsHealthy reports whether the connection is established and usable.
func (c *Client) IsHealthy() bool {
	if c.Status() != StatusConnected {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// URL returns the configured server URL.
func (c *Client) URL() string {
	return c.url
}

// Reconnects returns how many times the connection has been re-established.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

func (c *Client) setStatus(status ConnectionStatus) {
	old := ConnectionStatus(c.status.Swap(int32(status)))
	if old != status {
		c.logger.Debug("connection status changed",
			"from", old.String(),
			"to", status.String())
	}
}

// WaitForConnection blocks until the connection reports healthy or the
// context expires. Useful after Connect when the first publish must not
// race the server handshake.
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("NATS connection not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
