package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage/memory"
	"github.com/vietddude/dashclient/internal/infra/transport"
)

type stubQueue struct {
	status domain.QueueStatus
}

func (s *stubQueue) QueueStatus() domain.QueueStatus { return s.status }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		queue  domain.QueueStatus
		expect SystemStatus
	}{
		{"online and empty", domain.QueueStatus{IsOnline: true, MaxQueueSize: 10}, StatusHealthy},
		{"offline", domain.QueueStatus{IsOnline: false, MaxQueueSize: 10}, StatusDegraded},
		{"backlog", domain.QueueStatus{IsOnline: true, QueueLength: 3, MaxQueueSize: 10}, StatusDegraded},
		{"full", domain.QueueStatus{IsOnline: false, QueueLength: 10, MaxQueueSize: 10}, StatusCritical},
	}
	for _, tt := range tests {
		if got := Evaluate(tt.queue); got != tt.expect {
			t.Errorf("%s: Evaluate() = %s, want %s", tt.name, got, tt.expect)
		}
	}
}

func newTestServer() (*Server, *stubQueue, *memory.ErrorStore) {
	q := &stubQueue{status: domain.QueueStatus{IsOnline: true, MaxQueueSize: 2}}
	store := memory.NewErrorStore()
	return NewServer(q, store, transport.NewMonitor(), 0, nil), q, store
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s, q, _ := newTestServer()
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	q.status.QueueLength = 2
	rec = do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for a full queue, got %d", rec.Code)
	}
}

func TestServer_Status(t *testing.T) {
	s, _, store := newTestServer()
	store.Save(&domain.ProcessedError{ID: "e1", Type: domain.ErrorTypeSystem})

	rec := do(t, s.Handler(), http.MethodGet, "/status")
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.StoredErrors != 1 || report.Status != StatusHealthy || report.Transport == nil {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestServer_Errors(t *testing.T) {
	s, _, store := newTestServer()
	h := s.Handler()
	store.Save(&domain.ProcessedError{ID: "e1", Type: domain.ErrorTypeNetwork, Severity: domain.SeverityHigh})
	store.Save(&domain.ProcessedError{ID: "e2", Type: domain.ErrorTypeSystem})

	rec := do(t, h, http.MethodGet, "/errors")
	var list []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0]["id"] != "e1" || list[0]["severity"] != "high" {
		t.Errorf("unexpected list: %v", list)
	}

	if rec := do(t, h, http.MethodGet, "/errors/e2"); rec.Code != http.StatusOK {
		t.Errorf("GET /errors/e2 = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/errors/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /errors/missing = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/errors/e2"); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE /errors/e2 = %d", rec.Code)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 stored error, got %d", store.Count())
	}

	rec = do(t, h, http.MethodDelete, "/errors")
	if rec.Code != http.StatusOK || store.Count() != 0 {
		t.Errorf("DELETE /errors = %d, remaining %d", rec.Code, store.Count())
	}
}

func TestServer_Metrics(t *testing.T) {
	s, _, _ := newTestServer()
	if rec := do(t, s.Handler(), http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d", rec.Code)
	}
}
