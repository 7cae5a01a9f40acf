package mq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CBNU-BigDataLab/Current/metric"
)

// queueMetrics holds Prometheus metrics for queue operations.
type queueMetrics struct {
	admitted  prometheus.Counter
	rejected  prometheus.Counter
	delivered prometheus.Counter

	occupancy   prometheus.Gauge
	utilization prometheus.Gauge
	capacity    prometheus.Gauge

	deliveryDuration prometheus.Histogram
}

// newQueueMetrics creates and registers queue metrics with the provided registry.
func newQueueMetrics(registry *metric.Registry, name string) (*queueMetrics, error) {
	labels := prometheus.Labels{"queue": name}

	m := &queueMetrics{
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "admitted_total",
			ConstLabels: labels,
			Help:        "Total number of admitted messages",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "rejected_total",
			ConstLabels: labels,
			Help:        "Total number of rejected push attempts",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "delivered_total",
			ConstLabels: labels,
			Help:        "Total number of messages delivered to the consumer",
		}),
		occupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "occupancy",
			ConstLabels: labels,
			Help:        "Current number of occupied slots",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "utilization",
			ConstLabels: labels,
			Help:        "Occupied slots as a fraction of capacity (0.0 to 1.0)",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "capacity",
			ConstLabels: labels,
			Help:        "Fixed slot count of the buffer",
		}),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "current",
			Subsystem:   "mq",
			Name:        "delivery_duration_seconds",
			ConstLabels: labels,
			Help:        "Time spent inside the consumer's Consume call",
			Buckets:     prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
	}

	if err := registry.RegisterCounter(name, "mq_admitted", m.admitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "mq_rejected", m.rejected); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "mq_delivered", m.delivered); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(name, "mq_occupancy", m.occupancy); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(name, "mq_utilization", m.utilization); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(name, "mq_capacity", m.capacity); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(name, "mq_delivery_duration", m.deliveryDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordAdmit increments the admitted counter and updates occupancy gauges.
func (m *queueMetrics) recordAdmit(size, capacity int) {
	m.admitted.Inc()
	m.occupancy.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}

// recordReject increments the rejected counter.
func (m *queueMetrics) recordReject() {
	m.rejected.Inc()
}

// recordFree increments the delivered counter and updates occupancy gauges.
func (m *queueMetrics) recordFree(size, capacity int) {
	m.delivered.Inc()
	m.occupancy.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}

// recordDeliveryDuration observes one Consume call duration.
func (m *queueMetrics) recordDeliveryDuration(d time.Duration) {
	m.deliveryDuration.Observe(d.Seconds())
}

// setCapacity publishes the fixed capacity once at construction.
func (m *queueMetrics) setCapacity(capacity int) {
	m.capacity.Set(float64(capacity))
}
