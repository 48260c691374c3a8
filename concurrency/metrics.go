package concurrency

import (
	"sync"
	"time"
)

// ConcurrencyMetrics captures request accounting for the client.
type ConcurrencyMetrics struct {
	mu sync.Mutex

	totalRequests  int64
	inFlight       int64
	permitWaitTime time.Duration
	responseTime   time.Duration
	responses      int64
	byClass        map[int]int64
}

// MetricsSnapshot is a point-in-time copy of ConcurrencyMetrics.
type MetricsSnapshot struct {
	TotalRequests       int64
	InFlight            int64
	PermitWaitTime      time.Duration
	AverageResponseTime time.Duration
	// ResponsesByClass counts responses by status class: 2 for 2xx, 4 for 4xx and so on.
	ResponsesByClass map[int]int64
}

func newConcurrencyMetrics() *ConcurrencyMetrics {
	return &ConcurrencyMetrics{byClass: map[int]int64{}}
}

func (m *ConcurrencyMetrics) acquired(wait time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.inFlight++
	m.permitWaitTime += wait
	return m.inFlight
}

func (m *ConcurrencyMetrics) released() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight > 0 {
		m.inFlight--
	}
	return m.inFlight
}

func (m *ConcurrencyMetrics) record(statusCode int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses++
	m.responseTime += elapsed
	m.byClass[statusCode/100]++
}

// Snapshot returns a copy of the current metrics.
func (m *ConcurrencyMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		TotalRequests:    m.totalRequests,
		InFlight:         m.inFlight,
		PermitWaitTime:   m.permitWaitTime,
		ResponsesByClass: make(map[int]int64, len(m.byClass)),
	}
	if m.responses > 0 {
		s.AverageResponseTime = m.responseTime / time.Duration(m.responses)
	}
	for k, v := range m.byClass {
		s.ResponsesByClass[k] = v
	}
	return s
}
