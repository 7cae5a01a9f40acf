package mq

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks queue activity. One instance exists per queue and is
// always collected; Prometheus export duplicates a subset of these on demand.
type Statistics struct {
	// Atomic counters for thread-safe updates
	admitted      int64
	rejected      int64
	delivered     int64
	producerWaits int64

	// Protected by mutex
	mu           sync.RWMutex
	startTime    time.Time
	occupancy    int64
	maxOccupancy int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Admit records one admitted message.
func (s *Statistics) Admit() {
	atomic.AddInt64(&s.admitted, 1)
}

// Reject records one rejected Push attempt.
func (s *Statistics) Reject() {
	atomic.AddInt64(&s.rejected, 1)
}

// Deliver records one completed delivery.
func (s *Statistics) Deliver() {
	atomic.AddInt64(&s.delivered, 1)
}

// ProducerWait records one condition-variable wait by a blocked producer.
func (s *Statistics) ProducerWait() {
	atomic.AddInt64(&s.producerWaits, 1)
}

// UpdateOccupancy updates the current number of occupied slots.
func (s *Statistics) UpdateOccupancy(occupancy int64) {
	s.mu.Lock()
	s.occupancy = occupancy
	if occupancy > s.maxOccupancy {
		s.maxOccupancy = occupancy
	}
	s.mu.Unlock()
}

// Admitted returns the total number of admitted messages.
func (s *Statistics) Admitted() int64 {
	return atomic.LoadInt64(&s.admitted)
}

// Rejected returns the total number of rejected Push attempts.
func (s *Statistics) Rejected() int64 {
	return atomic.LoadInt64(&s.rejected)
}

// Delivered returns the total number of delivered messages.
func (s *Statistics) Delivered() int64 {
	return atomic.LoadInt64(&s.delivered)
}

// ProducerWaits returns the total number of producer blocking waits.
func (s *Statistics) ProducerWaits() int64 {
	return atomic.LoadInt64(&s.producerWaits)
}

// Occupancy returns the current number of occupied slots.
func (s *Statistics) Occupancy() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occupancy
}

// MaxOccupancy returns the high-water mark of occupied slots.
func (s *Statistics) MaxOccupancy() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxOccupancy
}

// AdmitThroughput returns the average number of admissions per second.
func (s *Statistics) AdmitThroughput() float64 {
	s.mu.RLock()
	elapsed := time.Since(s.startTime)
	s.mu.RUnlock()

	if elapsed == 0 {
		return 0.0
	}

	return float64(s.Admitted()) / elapsed.Seconds()
}

// DeliverThroughput returns the average number of deliveries per second.
func (s *Statistics) DeliverThroughput() float64 {
	s.mu.RLock()
	elapsed := time.Since(s.startTime)
	s.mu.RUnlock()

	if elapsed == 0 {
		return 0.0
	}

	return float64(s.Delivered()) / elapsed.Seconds()
}

// RejectRate returns the fraction of Push attempts that were rejected
// (0.0 to 1.0).
func (s *Statistics) RejectRate() float64 {
	admitted := s.Admitted()
	rejected := s.Rejected()

	attempts := admitted + rejected
	if attempts == 0 {
		return 0.0
	}

	return float64(rejected) / float64(attempts)
}

// Utilization returns current occupancy as a fraction of capacity
// (0.0 to 1.0).
func (s *Statistics) Utilization(capacity int64) float64 {
	if capacity == 0 {
		return 0.0
	}

	return float64(s.Occupancy()) / float64(capacity)
}

// Uptime returns how long the queue has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Reset resets all statistics to zero.
func (s *Statistics) Reset() {
	atomic.StoreInt64(&s.admitted, 0)
	atomic.StoreInt64(&s.rejected, 0)
	atomic.StoreInt64(&s.delivered, 0)
	atomic.StoreInt64(&s.producerWaits, 0)

	s.mu.Lock()
	s.startTime = time.Now()
	s.occupancy = 0
	s.maxOccupancy = 0
	s.mu.Unlock()
}

// StatsSummary is a point-in-time snapshot of all statistics.
type StatsSummary struct {
	Admitted          int64         `json:"admitted"`
	Rejected          int64         `json:"rejected"`
	Delivered         int64         `json:"delivered"`
	ProducerWaits     int64         `json:"producer_waits"`
	Occupancy         int64         `json:"occupancy"`
	MaxOccupancy      int64         `json:"max_occupancy"`
	AdmitThroughput   float64       `json:"admit_throughput"`
	DeliverThroughput float64       `json:"deliver_throughput"`
	RejectRate        float64       `json:"reject_rate"`
	Uptime            time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Admitted:          s.Admitted(),
		Rejected:          s.Rejected(),
		Delivered:         s.Delivered(),
		ProducerWaits:     s.ProducerWaits(),
		Occupancy:         s.Occupancy(),
		MaxOccupancy:      s.MaxOccupancy(),
		AdmitThroughput:   s.AdmitThroughput(),
		DeliverThroughput: s.DeliverThroughput(),
		RejectRate:        s.RejectRate(),
		Uptime:            s.Uptime(),
	}
}
