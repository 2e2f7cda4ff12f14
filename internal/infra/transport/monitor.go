package transport

import (
	"sync"
	"time"
)

// MonitorStats holds attempt statistics for diagnostics.
type MonitorStats struct {
	Requests          int           `json:"requests"`
	Failures          int           `json:"failures"`
	Throttled         int           `json:"throttled"`
	AverageLatency    time.Duration `json:"average_latency"`
	LastThrottleAt    time.Time     `json:"last_throttle_at,omitempty"`
	LastRetryAfter    time.Duration `json:"last_retry_after"`
	RemainingThrottle time.Duration `json:"remaining_throttle"`
}

// Monitor tracks latency and rate limiting seen by a transport.
type Monitor struct {
	mu sync.RWMutex

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	requests  int
	failures  int
	throttled int

	lastThrottleTime time.Time
	retryAfter       time.Duration
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
	}
}

// RecordRequest records a successful attempt with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordFailure records a failed attempt.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	m.failures++
}

// RecordThrottle records a 429 answer and its Retry-After.
func (m *Monitor) RecordThrottle(retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.failures++
	m.throttled++
	m.lastThrottleTime = time.Now()
	m.retryAfter = retryAfter
}

// RetryAfter returns remaining time before the server accepts requests again.
func (m *Monitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remainingLocked()
}

func (m *Monitor) remainingLocked() time.Duration {
	if m.retryAfter <= 0 {
		return 0
	}
	if remaining := m.retryAfter - time.Since(m.lastThrottleTime); remaining > 0 {
		return remaining
	}
	return 0
}

// Stats returns current statistics.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		Requests:          m.requests,
		Failures:          m.failures,
		Throttled:         m.throttled,
		LastThrottleAt:    m.lastThrottleTime,
		LastRetryAfter:    m.retryAfter,
		RemainingThrottle: m.remainingLocked(),
	}
	if len(m.recentLatencies) > 0 {
		var total time.Duration
		for _, lat := range m.recentLatencies {
			total += lat
		}
		stats.AverageLatency = total / time.Duration(len(m.recentLatencies))
	}
	return stats
}
