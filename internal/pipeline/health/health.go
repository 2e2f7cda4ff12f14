// Package health exposes the pipeline state over HTTP: connectivity, offline
// queue, stored errors and Prometheus metrics.
package health

import (
	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/transport"
)

// SystemStatus represents the overall state of the pipeline.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// QueueSource reports the dispatcher's queue view.
type QueueSource interface {
	QueueStatus() domain.QueueStatus
}

// Report is the detailed status document.
type Report struct {
	Status       SystemStatus            `json:"status"`
	Queue        domain.QueueStatus      `json:"queue"`
	StoredErrors int                     `json:"stored_errors"`
	Transport    *transport.MonitorStats `json:"transport,omitempty"`
}

// Evaluate derives the status from the queue: a full queue is critical, being
// offline or holding queued requests is degraded.
func Evaluate(q domain.QueueStatus) SystemStatus {
	switch {
	case q.MaxQueueSize > 0 && q.QueueLength >= q.MaxQueueSize:
		return StatusCritical
	case !q.IsOnline || q.QueueLength > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
