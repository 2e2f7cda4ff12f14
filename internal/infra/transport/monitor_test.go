package transport

import (
	"testing"
	"time"
)

func TestMonitor_Stats(t *testing.T) {
	m := NewMonitor()
	m.RecordRequest(10 * time.Millisecond)
	m.RecordRequest(30 * time.Millisecond)
	m.RecordFailure()

	stats := m.Stats()
	if stats.Requests != 3 || stats.Failures != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.AverageLatency != 20*time.Millisecond {
		t.Errorf("AverageLatency = %v, want 20ms", stats.AverageLatency)
	}
}

func TestMonitor_Throttle(t *testing.T) {
	m := NewMonitor()
	m.RecordThrottle(time.Minute)

	if got := m.RetryAfter(); got <= 0 || got > time.Minute {
		t.Errorf("RetryAfter = %v, want (0, 1m]", got)
	}
	stats := m.Stats()
	if stats.Throttled != 1 || stats.LastRetryAfter != time.Minute {
		t.Errorf("unexpected throttle stats: %+v", stats)
	}

	m.RecordThrottle(0)
	if got := m.RetryAfter(); got != 0 {
		t.Errorf("RetryAfter = %v after zero throttle", got)
	}
}

func TestMonitor_LatencyWindow(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 150; i++ {
		m.RecordRequest(time.Second)
	}
	m.mu.RLock()
	n := len(m.recentLatencies)
	m.mu.RUnlock()
	if n != 100 {
		t.Errorf("window holds %d latencies, want 100", n)
	}
}
