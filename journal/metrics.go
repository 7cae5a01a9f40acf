package journal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CBNU-BigDataLab/Current/metric"
)

// journalMetrics exports journal activity through the shared registry.
type journalMetrics struct {
	appended       prometheus.Counter
	appendBytes    prometheus.Counter
	appendDuration prometheus.Histogram
	lastSequence   prometheus.Gauge
}

func newJournalMetrics(registry *metric.Registry) (*journalMetrics, error) {
	m := &journalMetrics{
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "current",
			Subsystem: "journal",
			Name:      "appended_total",
			Help:      "Total entries appended to the journal",
		}),
		appendBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "current",
			Subsystem: "journal",
			Name:      "append_bytes_total",
			Help:      "Total payload bytes appended to the journal",
		}),
		appendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "current",
			Subsystem: "journal",
			Name:      "append_duration_seconds",
			Help:      "Batch append latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 10, 7),
		}),
		lastSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "current",
			Subsystem: "journal",
			Name:      "last_sequence",
			Help:      "Highest sequence number appended to the journal",
		}),
	}

	if err := registry.RegisterCounter("journal", "journal_appended", m.appended); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("journal", "journal_append_bytes", m.appendBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("journal", "journal_append_duration", m.appendDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("journal", "journal_last_sequence", m.lastSequence); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *journalMetrics) recordAppend(entries, bytes int, d time.Duration) {
	m.appended.Add(float64(entries))
	m.appendBytes.Add(float64(bytes))
	m.appendDuration.Observe(d.Seconds())
}

func (m *journalMetrics) setLastSequence(seq uint64) {
	m.lastSequence.Set(float64(seq))
}
