package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/dashclient/internal/infra/storage"
	"github.com/vietddude/dashclient/internal/infra/transport"
)

// Server provides the diagnostics endpoints.
type Server struct {
	queue     QueueSource
	errors    storage.ErrorStore
	transport *transport.Monitor
	log       *slog.Logger
	server    *http.Server
}

// NewServer creates a diagnostics server. tm may be nil.
func NewServer(queue QueueSource, errs storage.ErrorStore, tm *transport.Monitor, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		queue:     queue,
		errors:    errs,
		transport: tm,
		log:       log,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /errors", s.handleListErrors)
	mux.HandleFunc("DELETE /errors", s.handleClearErrors)
	mux.HandleFunc("GET /errors/{id}", s.handleGetError)
	mux.HandleFunc("DELETE /errors/{id}", s.handleDeleteError)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("Diagnostics server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Report builds the detailed status document.
func (s *Server) Report() Report {
	q := s.queue.QueueStatus()
	report := Report{
		Status:       Evaluate(q),
		Queue:        q,
		StoredErrors: s.errors.Count(),
	}
	if s.transport != nil {
		stats := s.transport.Stats()
		report.Transport = &stats
	}
	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := Evaluate(s.queue.QueueStatus())
	code := http.StatusOK
	if status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(status)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Report())
}

func (s *Server) handleListErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.errors.List())
}

func (s *Server) handleClearErrors(w http.ResponseWriter, r *http.Request) {
	n := s.errors.Count()
	s.errors.Clear()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Server) handleGetError(w http.ResponseWriter, r *http.Request) {
	perr, err := s.errors.Get(r.PathValue("id"))
	if errors.Is(err, storage.ErrErrorNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, perr)
}

func (s *Server) handleDeleteError(w http.ResponseWriter, r *http.Request) {
	if !s.errors.Delete(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
