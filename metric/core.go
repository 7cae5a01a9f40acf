package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains pipeline-level metrics shared across components.
// Component-specific metrics (queue occupancy, journal flush batches, and so
// on) live with their components and register through the Registry.
type Metrics struct {
	// Pipeline metrics
	PipelineStatus   *prometheus.GaugeVec
	MessagesProduced *prometheus.CounterVec
	SequenceGaps     *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// Pipeline status values reported through PipelineStatus.
const (
	PipelineStopped  = 0
	PipelineRunning  = 1
	PipelineDraining = 2
)

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PipelineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "current",
				Subsystem: "pipeline",
				Name:      "status",
				Help:      "Pipeline status (0=stopped, 1=running, 2=draining)",
			},
			[]string{"pipeline"},
		),

		MessagesProduced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "current",
				Subsystem: "pipeline",
				Name:      "produced_total",
				Help:      "Total number of messages submitted by producers",
			},
			[]string{"pipeline", "sink"},
		),

		SequenceGaps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "current",
				Subsystem: "pipeline",
				Name:      "sequence_gaps_total",
				Help:      "Total messages lost to overflow drops, as observed from delivered sequence numbers",
			},
			[]string{"component"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "current",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and classification",
			},
			[]string{"component", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "current",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "current",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordPipelineStatus updates pipeline status metric
func (m *Metrics) RecordPipelineStatus(pipeline string, status int) {
	m.PipelineStatus.WithLabelValues(pipeline).Set(float64(status))
}

// RecordMessageProduced increments the producer-side message counter
func (m *Metrics) RecordMessageProduced(pipeline, sink string) {
	m.MessagesProduced.WithLabelValues(pipeline, sink).Inc()
}

// RecordSequenceGap adds observed drop counts for a component
func (m *Metrics) RecordSequenceGap(component string, missed uint64) {
	m.SequenceGaps.WithLabelValues(component).Add(float64(missed))
}

// RecordError increments error counter
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
