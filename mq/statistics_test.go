package mq

import (
	"sync"
	"testing"
	"time"
)

func TestStatistics_Counters(t *testing.T) {
	stats := NewStatistics()

	stats.Admit()
	stats.Admit()
	stats.Reject()
	stats.Deliver()
	stats.ProducerWait()
	stats.ProducerWait()
	stats.ProducerWait()

	if got := stats.Admitted(); got != 2 {
		t.Errorf("expected 2 admitted, got %d", got)
	}
	if got := stats.Rejected(); got != 1 {
		t.Errorf("expected 1 rejected, got %d", got)
	}
	if got := stats.Delivered(); got != 1 {
		t.Errorf("expected 1 delivered, got %d", got)
	}
	if got := stats.ProducerWaits(); got != 3 {
		t.Errorf("expected 3 producer waits, got %d", got)
	}
}

func TestStatistics_Occupancy(t *testing.T) {
	stats := NewStatistics()

	stats.UpdateOccupancy(3)
	stats.UpdateOccupancy(7)
	stats.UpdateOccupancy(5)

	if got := stats.Occupancy(); got != 5 {
		t.Errorf("expected occupancy 5, got %d", got)
	}
	if got := stats.MaxOccupancy(); got != 7 {
		t.Errorf("expected max occupancy 7, got %d", got)
	}
}

func TestStatistics_RejectRate(t *testing.T) {
	stats := NewStatistics()

	if got := stats.RejectRate(); got != 0 {
		t.Errorf("expected zero reject rate before any attempt, got %f", got)
	}

	for i := 0; i < 3; i++ {
		stats.Admit()
	}
	stats.Reject()

	if got := stats.RejectRate(); got != 0.25 {
		t.Errorf("expected reject rate 0.25, got %f", got)
	}
}

func TestStatistics_Utilization(t *testing.T) {
	stats := NewStatistics()
	stats.UpdateOccupancy(5)

	if got := stats.Utilization(10); got != 0.5 {
		t.Errorf("expected utilization 0.5, got %f", got)
	}
	if got := stats.Utilization(0); got != 0 {
		t.Errorf("expected zero utilization for zero capacity, got %f", got)
	}
}

func TestStatistics_Throughput(t *testing.T) {
	stats := NewStatistics()

	for i := 0; i < 100; i++ {
		stats.Admit()
		stats.Deliver()
	}
	time.Sleep(10 * time.Millisecond)

	if got := stats.AdmitThroughput(); got <= 0 {
		t.Errorf("expected positive admit throughput, got %f", got)
	}
	if got := stats.DeliverThroughput(); got <= 0 {
		t.Errorf("expected positive deliver throughput, got %f", got)
	}
}

func TestStatistics_Reset(t *testing.T) {
	stats := NewStatistics()

	stats.Admit()
	stats.Reject()
	stats.Deliver()
	stats.ProducerWait()
	stats.UpdateOccupancy(9)
	stats.Reset()

	if got := stats.Admitted(); got != 0 {
		t.Errorf("expected 0 admitted after reset, got %d", got)
	}
	if got := stats.Rejected(); got != 0 {
		t.Errorf("expected 0 rejected after reset, got %d", got)
	}
	if got := stats.Delivered(); got != 0 {
		t.Errorf("expected 0 delivered after reset, got %d", got)
	}
	if got := stats.ProducerWaits(); got != 0 {
		t.Errorf("expected 0 producer waits after reset, got %d", got)
	}
	if got := stats.MaxOccupancy(); got != 0 {
		t.Errorf("expected 0 max occupancy after reset, got %d", got)
	}
}

func TestStatistics_Summary(t *testing.T) {
	stats := NewStatistics()

	stats.Admit()
	stats.Admit()
	stats.Reject()
	stats.Deliver()
	stats.UpdateOccupancy(1)

	summary := stats.Summary()

	if summary.Admitted != 2 {
		t.Errorf("expected 2 admitted in summary, got %d", summary.Admitted)
	}
	if summary.Rejected != 1 {
		t.Errorf("expected 1 rejected in summary, got %d", summary.Rejected)
	}
	if summary.Delivered != 1 {
		t.Errorf("expected 1 delivered in summary, got %d", summary.Delivered)
	}
	if summary.Occupancy != 1 {
		t.Errorf("expected occupancy 1 in summary, got %d", summary.Occupancy)
	}
	if summary.MaxOccupancy != 1 {
		t.Errorf("expected max occupancy 1 in summary, got %d", summary.MaxOccupancy)
	}
	if summary.RejectRate == 0 {
		t.Error("expected non-zero reject rate in summary")
	}
	if summary.Uptime <= 0 {
		t.Errorf("expected positive uptime, got %v", summary.Uptime)
	}
}

func TestStatistics_ConcurrentUpdates(t *testing.T) {
	stats := NewStatistics()

	var wg sync.WaitGroup
	const workers = 10
	const perWorker = 1000

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				stats.Admit()
				stats.Deliver()
				stats.UpdateOccupancy(i % 8)
			}
		}()
	}
	wg.Wait()

	if got := stats.Admitted(); got != workers*perWorker {
		t.Errorf("expected %d admitted, got %d", workers*perWorker, got)
	}
	if got := stats.Delivered(); got != workers*perWorker {
		t.Errorf("expected %d delivered, got %d", workers*perWorker, got)
	}
}
