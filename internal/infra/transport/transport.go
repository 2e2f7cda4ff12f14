// Package transport issues single HTTP attempts against the remote API.
//
// It knows nothing about retries or classification: a 2xx answer becomes a
// Response, any other status becomes an *HTTPError, and I/O failures are
// returned wrapped so net.Error and friends stay reachable through errors.As.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/dashclient/internal/core/domain"
)

// Transport performs one attempt of a request.
type Transport interface {
	Do(ctx context.Context, req domain.Request) (*Response, error)
}

// Response is a successful (2xx) answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// HTTPError is a non-2xx answer.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// RetryAfter is the parsed Retry-After header, 0 when absent.
	RetryAfter time.Duration

	// Upload is set when the request carried a multipart body.
	Upload bool
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s %s: %s", e.StatusCode, e.Method, e.URL, status)
}

// ParseRetryAfter understands both delta-seconds and HTTP-date forms.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
