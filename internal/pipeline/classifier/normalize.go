package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/transport"
)

// RawFailure is the transport-independent shape every failure is reduced to
// before classification.
type RawFailure struct {
	StatusCode int
	Code       string
	Message    string
	Detail     string
	Details    any
	Stack      string
	RetryAfter time.Duration

	IsNetworkError  bool
	IsOffline       bool
	IsTimeout       bool
	IsUpload        bool
	IsBusinessLogic bool
	IsAuthorization bool
	IsCancelled     bool
	IsGoError       bool

	// Pipeline is set for the dispatcher's own terminal failures.
	Pipeline bool

	HasValidationPayload bool
	ValidationErrors     map[string][]string
}

// Normalize reduces any raw failure to a RawFailure.
func Normalize(raw any) RawFailure {
	var f RawFailure

	switch v := raw.(type) {
	case nil:
	case string:
		f.Message = v
	case []byte:
		f.applyBody(v)
		if f.Message == "" {
			f.Message = string(v)
		}
	case map[string]any:
		f.applyEnvelope(v)
	case error:
		f.applyError(v)
	default:
		f.Message = fmt.Sprint(v)
	}

	f.Message = strings.TrimSpace(f.Message)
	return f
}

func (f *RawFailure) applyError(err error) {
	f.IsGoError = true
	f.Message = err.Error()

	if s, ok := err.(interface{ Stack() string }); ok {
		f.Stack = s.Stack()
	}

	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		f.applyHTTP(httpErr)
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		f.HasValidationPayload = true
		f.ValidationErrors = vErr.Fields
		f.Details = vErr.Fields
		if vErr.Message != "" {
			f.Message = vErr.Message
		}
	}

	var uErr *UploadError
	if errors.As(err, &uErr) {
		f.IsUpload = true
		if uErr.Code != "" {
			f.Code = uErr.Code
		}
	}

	var bErr *BusinessError
	if errors.As(err, &bErr) {
		f.IsBusinessLogic = true
		if bErr.Code != "" {
			f.Code = bErr.Code
		}
		if bErr.Message != "" {
			f.Message = bErr.Message
		}
	}

	switch {
	case errors.Is(err, domain.ErrQueueFull):
		f.Pipeline, f.Code = true, domain.CodeQueueFull
	case errors.Is(err, domain.ErrQueueTimeout):
		f.Pipeline, f.Code = true, domain.CodeQueueTimeout
	case errors.Is(err, domain.ErrQueueCleared):
		f.Pipeline, f.Code = true, domain.CodeQueueCleared
	case errors.Is(err, domain.ErrDispatcherClosed):
		f.Pipeline, f.Code = true, domain.CodeDispatcherClosed
	}

	if errors.Is(err, domain.ErrOffline) {
		f.IsOffline = true
		f.IsNetworkError = true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		f.IsTimeout = true
		f.IsNetworkError = true
	}
	if errors.Is(err, context.Canceled) {
		f.IsCancelled = true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		f.IsNetworkError = true
	}

	// HTTP errors are answers, not network failures, even though some
	// wrappers implement net.Error.
	if httpErr == nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			f.IsNetworkError = true
			if netErr.Timeout() {
				f.IsTimeout = true
			}
		}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		f.applyGRPC(st)
	}
}

func (f *RawFailure) applyHTTP(e *transport.HTTPError) {
	f.StatusCode = e.StatusCode
	f.RetryAfter = e.RetryAfter
	f.IsUpload = f.IsUpload || e.Upload
	f.Message = fmt.Sprintf("HTTP %d: %s", e.StatusCode, strings.TrimSpace(strings.TrimPrefix(e.Status, strconv.Itoa(e.StatusCode))))
	if len(e.Body) > 0 {
		f.applyBody(e.Body)
	}
	if e.StatusCode == 408 {
		f.IsTimeout = true
	}
}

// applyBody parses a JSON error envelope if the body is one.
func (f *RawFailure) applyBody(body []byte) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		f.Detail = truncate(string(body), 2048)
		return
	}
	f.applyEnvelope(envelope)
}

// applyEnvelope reads {message, code, details, errors} either at the top level
// or nested under "error".
func (f *RawFailure) applyEnvelope(m map[string]any) {
	if nested, ok := m["error"].(map[string]any); ok {
		f.applyEnvelope(nested)
	} else if s, ok := m["error"].(string); ok && f.Message == "" {
		f.Message = s
	}

	if s, ok := m["message"].(string); ok && s != "" {
		f.Message = s
	}
	switch c := m["code"].(type) {
	case string:
		f.Code = c
	case float64:
		f.Code = strconv.Itoa(int(c))
	}
	for _, key := range []string{"status", "statusCode", "status_code"} {
		if n, ok := m[key].(float64); ok && f.StatusCode == 0 {
			f.StatusCode = int(n)
		}
	}
	if d, ok := m["details"]; ok && d != nil {
		f.Details = d
		f.Detail = detailString(d)
	} else if d, ok := m["detail"].(string); ok {
		f.Detail = d
	}
	if errs, ok := m["errors"]; ok && errs != nil {
		if fields := validationFields(errs); len(fields) > 0 {
			f.HasValidationPayload = true
			f.ValidationErrors = fields
			f.Details = fields
		}
	}
	if b, ok := m["isNetworkError"].(bool); ok && b {
		f.IsNetworkError = true
	}
	if b, ok := m["isUploadError"].(bool); ok && b {
		f.IsUpload = true
	}
	if b, ok := m["isBusinessLogic"].(bool); ok && b {
		f.IsBusinessLogic = true
	}
}

func (f *RawFailure) applyGRPC(st *status.Status) {
	if st.Message() != "" {
		f.Message = st.Message()
	}
	if f.Code == "" {
		f.Code = st.Code().String()
	}

	switch st.Code() {
	case codes.Unavailable:
		f.IsNetworkError = true
	case codes.DeadlineExceeded:
		f.IsNetworkError = true
		f.IsTimeout = true
	case codes.Canceled:
		f.IsCancelled = true
	case codes.Unauthenticated:
		if f.StatusCode == 0 {
			f.StatusCode = 401
		}
	case codes.PermissionDenied:
		f.IsAuthorization = true
	case codes.InvalidArgument:
		if f.StatusCode == 0 {
			f.StatusCode = 400
		}
	case codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
		f.IsBusinessLogic = true
	case codes.ResourceExhausted:
		f.IsBusinessLogic = true
		if f.StatusCode == 0 {
			f.StatusCode = 429
		}
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unimplemented:
		if f.StatusCode == 0 {
			f.StatusCode = 500
		}
	}

	for _, d := range st.Details() {
		switch detail := d.(type) {
		case *errdetails.RetryInfo:
			if detail.GetRetryDelay() != nil {
				f.RetryAfter = detail.GetRetryDelay().AsDuration()
			}
		case *errdetails.BadRequest:
			fields := make(map[string][]string)
			for _, v := range detail.GetFieldViolations() {
				fields[v.GetField()] = append(fields[v.GetField()], v.GetDescription())
			}
			if len(fields) > 0 {
				f.HasValidationPayload = true
				f.ValidationErrors = fields
				f.Details = fields
			}
		case *errdetails.DebugInfo:
			f.Stack = strings.Join(detail.GetStackEntries(), "\n")
			if f.Detail == "" {
				f.Detail = detail.GetDetail()
			}
		}
	}
}

// validationFields accepts {"field": ["msg"]}, {"field": "msg"} and
// [{"field": "f", "message": "msg"}].
func validationFields(v any) map[string][]string {
	out := make(map[string][]string)
	switch errs := v.(type) {
	case map[string]any:
		for field, msgs := range errs {
			switch m := msgs.(type) {
			case string:
				out[field] = append(out[field], m)
			case []any:
				for _, item := range m {
					if s, ok := item.(string); ok {
						out[field] = append(out[field], s)
					}
				}
			}
		}
	case []any:
		for _, item := range errs {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			field, _ := entry["field"].(string)
			msg, _ := entry["message"].(string)
			if field != "" {
				out[field] = append(out[field], msg)
			}
		}
	}
	return out
}

func detailString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
