// Package config provides configuration loading and validation.
//
// Configuration is assembled from three sources, lowest precedence first:
// built-in defaults, JSON file layers merged in the order they were added,
// and CURRENT_* environment variables. The result is validated before use
// so a misconfigured process fails at startup instead of mid-stream.
//
// # Loading
//
// The Loader merges layers over Defaults():
//
//	loader := config.NewLoader()
//	loader.AddLayer("current.json")
//	loader.AddLayer("current.local.json")
//	cfg, err := loader.Load()
//	if err != nil {
//	    return err
//	}
//
// A single file is the common case:
//
//	cfg, err := config.NewLoader().LoadFile("current.json")
//
// Layer files only need the fields they change. Durations accept Go duration
// strings, so a layer can say:
//
//	{
//	  "queue": {"capacity": 8192, "policy": "drop"},
//	  "journal": {"enabled": true, "dir": "/var/lib/current", "flush_interval": "20ms"}
//	}
//
// # Environment Overrides
//
// Environment variables override file values, for container deployments
// where editing config files is awkward:
//
//	CURRENT_QUEUE_NAME      queue.name
//	CURRENT_QUEUE_CAPACITY  queue.capacity
//	CURRENT_QUEUE_POLICY    queue.policy
//	CURRENT_JOURNAL_DIR     journal.dir (also enables the journal)
//	CURRENT_NATS_URL        nats.url (also enables replication)
//	CURRENT_NATS_SUBJECT    nats.subject
//	CURRENT_METRICS_LISTEN  metrics.listen
//	CURRENT_LOG_LEVEL       logging.level
//	CURRENT_LOG_FORMAT      logging.format
//
// # Validation
//
// Validate enforces the cross-field rules: a positive queue capacity, a
// known overflow policy, a journal directory when the journal is enabled,
// and a URL plus subject when replication is enabled. Loaders validate by
// default; disable with EnableValidation(false) when assembling partial
// configs in tests.
package config
