package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one call to the remote API. Body and query are opaque to
// the pipeline; only the transport looks at them.
type Request struct {
	ID      string      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Query   url.Values  `json:"query,omitempty"`
	Headers http.Header `json:"headers,omitempty"`
	Body    any         `json:"body,omitempty"`

	// Label names the originating component/action ("reports.list").
	Label string `json:"label,omitempty"`
}

// Clone returns a copy with its own header and query maps so one attempt can
// attach credentials without touching the caller's descriptor.
func (r Request) Clone() Request {
	c := r
	if r.Headers != nil {
		c.Headers = r.Headers.Clone()
	} else {
		c.Headers = make(http.Header)
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	return c
}

// ResultError is the wire shape of a failed Result.
type ResultError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Result is what every Send returns: a success payload or a classified error.
type Result struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Error    *ResultError    `json:"error,omitempty"`

	// Processed is the full classified error for failed results.
	Processed *ProcessedError `json:"-"`
}

// OK builds a success result.
func OK(data json.RawMessage, metadata map[string]any) Result {
	return Result{Success: true, Data: data, Metadata: metadata}
}

// Failed builds a failure result from a classified error.
func Failed(perr *ProcessedError) Result {
	details := perr.Details
	if details == nil && perr.TechnicalMessage != "" {
		details = perr.TechnicalMessage
	}
	return Result{
		Success: false,
		Error: &ResultError{
			Message: perr.UserMessage,
			Code:    perr.Code,
			Details: details,
		},
		Processed: perr,
	}
}

// Decode unmarshals the success payload into v.
func (r Result) Decode(v any) error {
	if !r.Success {
		if r.Processed != nil {
			return r.Processed
		}
		return fmt.Errorf("request failed")
	}
	return json.Unmarshal(r.Data, v)
}

// QueuedRequest is a request held by the offline queue.
type QueuedRequest struct {
	ID         string
	Request    Request
	EnqueuedAt time.Time
	Deadline   time.Time
	RetryCount int
}

// QueueStatus is the diagnostic view of the offline queue.
type QueueStatus struct {
	IsOnline          bool `json:"is_online"`
	QueueLength       int  `json:"queue_length"`
	IsProcessingQueue bool `json:"is_processing_queue"`
	MaxQueueSize      int  `json:"max_queue_size"`
}

// RetryState tracks one logical request across attempts.
type RetryState struct {
	RequestID        string
	RetryCount       int
	LastAttemptAt    time.Time
	RateLimitRetried bool
}
