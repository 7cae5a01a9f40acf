package natsclient

import (
	"log/slog"
	"time"

	"github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
)

// ClientOption configures a Client during NewClient.
type ClientOption func(*Client) error

// WithName sets the client name reported to the NATS server.
func WithName(name string) ClientOption {
	return func(c *Client) error {
		if name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "natsclient", "WithName", "client name must not be empty")
		}
		c.clientName = name
		return nil
	}
}

// WithMaxReconnects sets how many reconnect attempts the connection makes
// before giving up. Use -1 to reconnect forever, 0 to disable reconnection.
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		if n < -1 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "natsclient", "WithMaxReconnects", "max reconnects must be >= -1, got %d", n)
		}
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the delay between reconnect attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "natsclient", "WithReconnectWait", "reconnect wait must be positive, got %v", d)
		}
		c.reconnectWait = d
		return nil
	}
}

// WithPingInterval sets how often the client pings the server to detect a
// dead connection.
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "natsclient", "WithPingInterval", "ping interval must be positive, got %v", d)
		}
		c.pingInterval = d
		return nil
	}
}

// WithTimeout sets the dial timeout for the initial connection.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "natsclient", "WithTimeout", "timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithDrainTimeout bounds how long Close waits for buffered messages to
// flush before closing the connection hard.
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "natsclient", "WithDrainTimeout", "drain timeout must be positive, got %v", d)
		}
		c.drainTimeout = d
		return nil
	}
}

// WithLogger sets the structured logger for connection events.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics wires connection state into the registry's core gauges so
// dashboards can track connectivity and reconnect churn.
func WithMetrics(registry *metric.Registry) ClientOption {
	return func(c *Client) error {
		if registry != nil {
			c.core = registry.CoreMetrics()
		}
		return nil
	}
}
