package mq

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/CBNU-BigDataLab/Current/metric"
)

// gatherMetric returns the sample for the named family carrying the given
// queue label, or nil if absent.
func gatherMetric(t *testing.T, registry *metric.Registry, family, queue string) *dto.Metric {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "queue" && label.GetValue() == queue {
					return m
				}
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, registry *metric.Registry, family, queue string) float64 {
	t.Helper()
	m := gatherMetric(t, registry, family, queue)
	if m == nil {
		t.Fatalf("metric %s{queue=%q} not gathered", family, queue)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, registry *metric.Registry, family, queue string) float64 {
	t.Helper()
	m := gatherMetric(t, registry, family, queue)
	if m == nil {
		t.Fatalf("metric %s{queue=%q} not gathered", family, queue)
	}
	return m.GetGauge().GetValue()
}

func TestQueue_MetricsExported(t *testing.T) {
	registry := metric.NewRegistry()

	sink := &recordingConsumer{}
	q, err := New[string](sink,
		WithCapacity[string](8),
		WithMetrics[string](registry, "events"),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		if !q.Push("message") {
			t.Fatalf("push %d rejected", i)
		}
	}
	require.NoError(t, q.Close())

	if got := counterValue(t, registry, "current_mq_admitted_total", "events"); got != 3 {
		t.Errorf("expected 3 admitted, got %f", got)
	}
	if got := counterValue(t, registry, "current_mq_delivered_total", "events"); got != 3 {
		t.Errorf("expected 3 delivered, got %f", got)
	}
	if got := gaugeValue(t, registry, "current_mq_capacity", "events"); got != 8 {
		t.Errorf("expected capacity gauge 8, got %f", got)
	}
	if got := gaugeValue(t, registry, "current_mq_occupancy", "events"); got != 0 {
		t.Errorf("expected occupancy 0 after drain, got %f", got)
	}

	duration := gatherMetric(t, registry, "current_mq_delivery_duration_seconds", "events")
	if duration == nil {
		t.Fatal("delivery duration histogram not gathered")
	}
	if got := duration.GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("expected 3 duration samples, got %d", got)
	}
}

func TestQueue_MetricsRecordRejections(t *testing.T) {
	registry := metric.NewRegistry()

	sink := newGatedConsumer()
	q, err := New[string](sink,
		WithCapacity[string](1),
		WithOverflowPolicy[string](Drop),
		WithMetrics[string](registry, "shedding"),
	)
	require.NoError(t, err)

	if !q.Push("kept") {
		t.Fatal("first push rejected")
	}
	<-sink.started

	for i := 0; i < 2; i++ {
		if q.Push("shed") {
			t.Fatal("expected rejection while slot is mid-delivery")
		}
	}

	if got := counterValue(t, registry, "current_mq_rejected_total", "shedding"); got != 2 {
		t.Errorf("expected 2 rejected, got %f", got)
	}

	close(sink.gate)
	<-sink.deliveries
	require.NoError(t, q.Close())
}

func TestQueue_MetricsDuplicateQueueName(t *testing.T) {
	registry := metric.NewRegistry()
	sink := ConsumerFunc[string](func(string, uint64, uint64) {})

	q, err := New[string](sink, WithMetrics[string](registry, "events"))
	require.NoError(t, err)
	defer q.Close()

	_, err = New[string](sink, WithMetrics[string](registry, "events"))
	if err == nil {
		t.Fatal("expected error on duplicate queue name against one registry")
	}
}

func TestQueue_MetricsOptionalWithoutRegistry(t *testing.T) {
	sink := &recordingConsumer{}

	// A nil registry disables export; the queue still works and still
	// collects in-process statistics.
	q, err := New[string](sink, WithMetrics[string](nil, "events"))
	require.NoError(t, err)

	if !q.Push("message") {
		t.Fatal("push rejected")
	}
	require.NoError(t, q.Close())

	if got := q.Stats().Delivered(); got != 1 {
		t.Errorf("expected 1 delivered in stats, got %d", got)
	}
}
