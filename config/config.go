// Package config loads and validates the application configuration from
// JSON files, defaults, and environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Queue overflow policy names accepted in configuration.
const (
	PolicyBlock = "block"
	PolicyDrop  = "drop"
)

// Config represents the complete application configuration.
type Config struct {
	Queue   QueueConfig   `json:"queue"`
	Journal JournalConfig `json:"journal"`
	NATS    NATSConfig    `json:"nats"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

// QueueConfig sets the buffered queue's shape and admission behavior.
type QueueConfig struct {
	// Name labels the queue's metrics.
	Name string `json:"name"`

	// Capacity is the number of message slots in the circular buffer.
	Capacity int `json:"capacity"`

	// Policy decides what happens when the buffer is full: "drop" rejects
	// the incoming message, "block" parks the producer until space frees.
	Policy string `json:"policy"`
}

// JournalConfig controls the durable log of queue deliveries.
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`

	// Sync forces an fsync per batch. Off by default; the journal then
	// group-commits on a short WAL sync interval.
	Sync bool `json:"sync,omitempty"`

	BatchSize     int           `json:"batch_size,omitempty"`
	FlushInterval time.Duration `json:"flush_interval,omitempty"`
}

// NATSConfig defines the replication transport connection.
type NATSConfig struct {
	Enabled       bool          `json:"enabled"`
	URL           string        `json:"url,omitempty"`
	Subject       string        `json:"subject,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	DrainTimeout  time.Duration `json:"drain_timeout,omitempty"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json or text
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	switch c.Queue.Policy {
	case PolicyBlock, PolicyDrop:
	default:
		return fmt.Errorf("queue.policy must be %q or %q, got %q", PolicyBlock, PolicyDrop, c.Queue.Policy)
	}
	if c.Queue.Name == "" {
		return errors.New("queue.name is required")
	}

	if c.Journal.Enabled {
		if c.Journal.Dir == "" {
			return errors.New("journal.dir is required when the journal is enabled")
		}
		if c.Journal.BatchSize <= 0 {
			return fmt.Errorf("journal.batch_size must be positive, got %d", c.Journal.BatchSize)
		}
		if c.Journal.FlushInterval <= 0 {
			return fmt.Errorf("journal.flush_interval must be positive, got %v", c.Journal.FlushInterval)
		}
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errors.New("nats.url is required when replication is enabled")
		}
		if c.NATS.Subject == "" {
			return errors.New("nats.subject is required when replication is enabled")
		}
		if c.NATS.MaxReconnects < -1 {
			return fmt.Errorf("nats.max_reconnects must be >= -1, got %d", c.NATS.MaxReconnects)
		}
		if c.NATS.ReconnectWait <= 0 {
			return fmt.Errorf("nats.reconnect_wait must be positive, got %v", c.NATS.ReconnectWait)
		}
		if c.NATS.DrainTimeout <= 0 {
			return fmt.Errorf("nats.drain_timeout must be positive, got %v", c.NATS.DrainTimeout)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics are enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// UnmarshalJSON accepts durations either as Go duration strings ("250ms")
// or as raw nanosecond numbers.
func (j *JournalConfig) UnmarshalJSON(data []byte) error {
	type Alias JournalConfig
	aux := &struct {
		FlushInterval any `json:"flush_interval"`
		*Alias
	}{
		Alias: (*Alias)(j),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := parseDurationValue(aux.FlushInterval)
	if err != nil {
		return fmt.Errorf("journal.flush_interval: %w", err)
	}
	if d != 0 {
		j.FlushInterval = d
	}
	return nil
}

// UnmarshalJSON accepts durations either as Go duration strings ("2s")
// or as raw nanosecond numbers.
func (n *NATSConfig) UnmarshalJSON(data []byte) error {
	type Alias NATSConfig
	aux := &struct {
		ReconnectWait any `json:"reconnect_wait"`
		DrainTimeout  any `json:"drain_timeout"`
		*Alias
	}{
		Alias: (*Alias)(n),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	wait, err := parseDurationValue(aux.ReconnectWait)
	if err != nil {
		return fmt.Errorf("nats.reconnect_wait: %w", err)
	}
	if wait != 0 {
		n.ReconnectWait = wait
	}

	drain, err := parseDurationValue(aux.DrainTimeout)
	if err != nil {
		return fmt.Errorf("nats.drain_timeout: %w", err)
	}
	if drain != 0 {
		n.DrainTimeout = drain
	}
	return nil
}

// parseDurationValue handles the two JSON encodings of a duration.
func parseDurationValue(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(val)
	case float64:
		return time.Duration(val), nil
	default:
		return 0, fmt.Errorf("unsupported duration value %v", v)
	}
}
