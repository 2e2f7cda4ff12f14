// Package connectivity tracks whether the remote API is reachable.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/dashclient/internal/pipeline/metrics"
)

// Config configures the probe loop. An empty ProbeURL disables probing;
// the state then only changes through SetOnline.
type Config struct {
	ProbeURL string
	Interval time.Duration
	Timeout  time.Duration
}

// Monitor holds the online flag and notifies subscribers on transitions.
type Monitor struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger

	mu     sync.RWMutex
	online bool
	subs   map[int]func(online bool)
	nextID int
}

// New creates a monitor that starts online.
func New(cfg Config, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	metrics.Online.Set(1)
	return &Monitor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		online: true,
		subs:   make(map[int]func(bool)),
	}
}

// IsOnline reports the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records an explicit online/offline event. Subscribers run on the
// caller's goroutine, only when the state actually changes.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if online {
		metrics.Online.Set(1)
		m.log.Info("Connectivity restored")
	} else {
		metrics.Online.Set(0)
		m.log.Warn("Connectivity lost")
	}
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for state transitions and returns its cancel func.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Probe checks the health endpoint once. Any HTTP response counts as online;
// only a transport failure means offline.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.cfg.ProbeURL == "" {
		return m.IsOnline()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.ProbeURL, nil)
	if err != nil {
		m.log.Error("Invalid probe URL", "url", m.cfg.ProbeURL, "error", err)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Debug("Connectivity probe failed", "url", m.cfg.ProbeURL, "error", err)
		return false
	}
	resp.Body.Close()
	return true
}

// Run probes on every interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.ProbeURL == "" || m.cfg.Interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info("Connectivity monitor started", "url", m.cfg.ProbeURL, "interval", m.cfg.Interval)
	for {
		online := m.Probe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		m.SetOnline(online)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
