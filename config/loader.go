package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Loader handles configuration loading with layers and overrides. Layers are
// merged in order on top of the defaults, then environment variables with
// the CURRENT_ prefix override individual fields.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "CURRENT",
	}
}

// AddLayer adds a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers, and environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Defaults returns the built-in configuration: a blocking queue with metrics
// on, journal and replication off until pointed at a directory and a server.
func Defaults() *Config {
	return &Config{
		Queue: QueueConfig{
			Name:     "current",
			Capacity: 1024,
			Policy:   PolicyBlock,
		},
		Journal: JournalConfig{
			Enabled:       false,
			BatchSize:     64,
			FlushInterval: 50 * time.Millisecond,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://localhost:4222",
			Subject:       "current.deliveries",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			DrainTimeout:  10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map.
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	return rawConfig, nil
}

// mergeFromMap merges a raw config map over the base, only overriding fields
// present in the map.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	mergedMap := l.deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	if val, err := l.envValue("QUEUE_NAME"); err != nil {
		return err
	} else if val != "" {
		cfg.Queue.Name = val
	}
	if val, err := l.envValue("QUEUE_CAPACITY"); err != nil {
		return err
	} else if val != "" {
		capacity, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_QUEUE_CAPACITY: %w", l.envPrefix, err)
		}
		cfg.Queue.Capacity = capacity
	}
	if val, err := l.envValue("QUEUE_POLICY"); err != nil {
		return err
	} else if val != "" {
		cfg.Queue.Policy = strings.ToLower(val)
	}

	if val, err := l.envValue("JOURNAL_DIR"); err != nil {
		return err
	} else if val != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Dir = val
	}

	if val, err := l.envValue("NATS_URL"); err != nil {
		return err
	} else if val != "" {
		cfg.NATS.Enabled = true
		cfg.NATS.URL = val
	}
	if val, err := l.envValue("NATS_SUBJECT"); err != nil {
		return err
	} else if val != "" {
		cfg.NATS.Subject = val
	}

	if val, err := l.envValue("METRICS_LISTEN"); err != nil {
		return err
	} else if val != "" {
		cfg.Metrics.Listen = val
	}

	if val, err := l.envValue("LOG_LEVEL"); err != nil {
		return err
	} else if val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val, err := l.envValue("LOG_FORMAT"); err != nil {
		return err
	} else if val != "" {
		cfg.Logging.Format = strings.ToLower(val)
	}

	return nil
}

// envValue reads one override and rejects hostile values.
func (l *Loader) envValue(suffix string) (string, error) {
	key := l.envPrefix + "_" + suffix
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return "", err
	}
	return val, nil
}
