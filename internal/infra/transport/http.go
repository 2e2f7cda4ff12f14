package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/dashclient/internal/core/domain"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 10 << 20

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	baseURL    *url.URL
	httpClient *http.Client

	Monitor *Monitor
}

// NewHTTPTransport creates a transport rooted at baseEndpoint.
func NewHTTPTransport(baseEndpoint string, timeout time.Duration) (*HTTPTransport, error) {
	base, err := url.Parse(strings.TrimRight(baseEndpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base endpoint: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base endpoint %q is not absolute", baseEndpoint)
	}

	return &HTTPTransport{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Monitor: NewMonitor(),
	}, nil
}

// Do makes a single HTTP attempt.
func (t *HTTPTransport) Do(ctx context.Context, r domain.Request) (*Response, error) {
	start := time.Now()

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	target := t.resolve(r.Path, r.Query)

	body, contentType, err := encodeBody(r.Body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, values := range r.Headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.Monitor.RecordFailure()
		return nil, fmt.Errorf("%s %s: %w", method, r.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		t.Monitor.RecordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			Method:     method,
			URL:        r.Path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       data,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Upload:     strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/"),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			t.Monitor.RecordThrottle(httpErr.RetryAfter)
		} else {
			t.Monitor.RecordFailure()
		}
		return nil, httpErr
	}

	t.Monitor.RecordRequest(latency)
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Latency:    latency,
	}, nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) resolve(path string, query url.Values) string {
	u := *t.baseURL
	if path != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	case []byte:
		return bytes.NewReader(b), "application/octet-stream", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

var _ Transport = (*HTTPTransport)(nil)
