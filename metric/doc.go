// Package metric provides Prometheus-based metrics collection and an HTTP
// exposition server for Current pipeline monitoring.
//
// The package offers a centralized metrics registry managing both core
// pipeline metrics (pipeline status, producer counts, sequence gaps, NATS
// health) and component-specific metrics registered by the queue, journal and
// replication packages. An HTTP server exposes everything in Prometheus
// format for scraping.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: pipeline-level metrics automatically registered (Metrics type)
//  2. Component Registry: extensible registration for component metrics (Registrar interface)
//  3. HTTP Server: metrics endpoint with a health check (Server type)
//
// Core metrics belong to the process as a whole; component metrics (queue
// occupancy, journal flush batches, replication publishes) are owned by their
// components and registered through the Registrar interface, keyed by
// "component.metric" so duplicate registrations fail fast.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	core := registry.CoreMetrics()
//	core.RecordPipelineStatus("bench", metric.PipelineRunning)
//	core.RecordNATSStatus(true)
//
// Components accept the registry at construction and register their own
// collectors:
//
//	q, err := mq.New[event](sink,
//	    mq.WithCapacity[event](1024),
//	    mq.WithMetrics[event](registry, "ingest"),
//	)
//
// A nil registry disables component metrics entirely; the always-on atomic
// statistics of each component keep working either way.
//
// # Naming
//
// All metrics use the "current" namespace. Subsystems identify the owning
// component: current_mq_*, current_journal_*, current_replication_*,
// current_pipeline_*, current_nats_*.
//
// # Thread Safety
//
// Registration and recording are safe for concurrent use. Prometheus
// collectors handle their own synchronization; the registry serializes
// bookkeeping with an internal mutex.
package metric
