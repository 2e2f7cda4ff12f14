// Package classifier turns arbitrary failures into typed, user-presentable
// errors with severity and recovery actions.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
	"github.com/vietddude/dashclient/internal/pipeline/metrics"
	"github.com/vietddude/dashclient/internal/pipeline/recovery"
)

// ConnectivityChecker reports whether the client currently has a link.
type ConnectivityChecker interface {
	IsOnline() bool
}

type options struct {
	context  string
	severity *domain.Severity
	retry    func(ctx context.Context) error
	request  *domain.Request
}

// Option customizes one classification.
type Option func(*options)

// WithContext labels the component or action the failure happened in.
func WithContext(label string) Option {
	return func(o *options) { o.context = label }
}

// WithSeverity raises the computed severity to at least s.
func WithSeverity(s domain.Severity) Option {
	return func(o *options) { o.severity = &s }
}

// WithRetry sets the effect of the retry recovery action.
func WithRetry(fn func(ctx context.Context) error) Option {
	return func(o *options) { o.retry = fn }
}

// WithRequest records the request that failed.
func WithRequest(req domain.Request) Option {
	return func(o *options) { o.request = &req }
}

// Classifier classifies failures and records them in the error store.
type Classifier struct {
	store        storage.ErrorStore
	registry     *recovery.Registry
	connectivity ConnectivityChecker
	log          *slog.Logger
	now          func() time.Time
}

// New creates a classifier. store, registry and connectivity may be nil.
func New(store storage.ErrorStore, registry *recovery.Registry, connectivity ConnectivityChecker, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = recovery.NewRegistry(recovery.Deps{Logger: log})
	}
	return &Classifier{
		store:        store,
		registry:     registry,
		connectivity: connectivity,
		log:          log,
		now:          time.Now,
	}
}

// Classify builds a ProcessedError from any raw failure. It never panics.
// A *domain.ProcessedError input is returned unchanged.
func (c *Classifier) Classify(raw any, opts ...Option) (perr *domain.ProcessedError) {
	if existing, ok := raw.(*domain.ProcessedError); ok && existing != nil {
		return existing
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Error classification panicked", "panic", r)
			perr = c.finish(&domain.ProcessedError{
				ID:               uuid.NewString(),
				Type:             domain.ErrorTypeUnknown,
				Severity:         domain.SeverityMedium,
				Message:          defaultUserMessage,
				UserMessage:      defaultUserMessage,
				TechnicalMessage: fmt.Sprintf("classification panic: %v\n%s", r, debug.Stack()),
				Context:          o.context,
				Timestamp:        c.now().UTC(),
				Original:         raw,
			}, o)
		}
	}()

	f := Normalize(raw)
	errType := c.classify(f)
	severity := severityFor(errType, f, c.offline())
	if o.severity != nil && o.severity.AtLeast(severity) {
		severity = *o.severity
	}

	message := f.Message
	if message == "" {
		message = defaultUserMessage
	}

	perr = &domain.ProcessedError{
		ID:               uuid.NewString(),
		Type:             errType,
		Severity:         severity,
		Message:          message,
		UserMessage:      UserMessage(errType, severity),
		TechnicalMessage: technicalMessage(f, o.request),
		Code:             code(f),
		Context:          contextLabel(o),
		Timestamp:        c.now().UTC(),
		Stack:            f.Stack,
		Details:          f.Details,
		Original:         raw,
	}
	return c.finish(perr, o)
}

// Categorize returns the type a failure would be classified as, without
// storing, logging or counting anything.
func (c *Classifier) Categorize(raw any) (t domain.ErrorType, f RawFailure) {
	if existing, ok := raw.(*domain.ProcessedError); ok && existing != nil {
		return existing.Type, Normalize(existing.Original)
	}
	defer func() {
		if r := recover(); r != nil {
			t, f = domain.ErrorTypeUnknown, RawFailure{Message: defaultUserMessage}
		}
	}()
	f = Normalize(raw)
	return c.classify(f), f
}

// finish attaches recovery actions, stores, logs and counts the error.
func (c *Classifier) finish(perr *domain.ProcessedError, o options) *domain.ProcessedError {
	perr.RecoveryActions = c.actions(perr, o)

	if c.store != nil {
		c.store.Save(perr)
	}
	metrics.ErrorsClassified.WithLabelValues(string(perr.Type), perr.Severity.String()).Inc()

	attrs := []any{
		"id", perr.ID,
		"type", perr.Type,
		"severity", perr.Severity.String(),
		"code", perr.Code,
		"context", perr.Context,
		"message", perr.Message,
	}
	if perr.Severity.AtLeast(domain.SeverityHigh) {
		c.log.Error("Request error", attrs...)
	} else {
		c.log.Warn("Request error", attrs...)
	}
	return perr
}

func (c *Classifier) actions(perr *domain.ProcessedError, o options) []domain.RecoveryAction {
	var actions []domain.RecoveryAction
	in := recovery.Input{Error: perr, Retry: o.retry}

	switch perr.Type {
	case domain.ErrorTypeNetwork:
		in.Primary = true
		actions = append(actions, c.registry.Action(domain.RecoveryRetry, in))
	case domain.ErrorTypeAuthentication:
		in.Primary = true
		actions = append(actions, c.registry.Action(domain.RecoveryReAuthenticate, in))
	}

	if perr.Severity.AtLeast(domain.SeverityHigh) {
		in.Primary = false
		actions = append(actions,
			c.registry.Action(domain.RecoveryReloadPage, in),
			c.registry.Action(domain.RecoveryContactSupport, in),
		)
	}
	return actions
}

func (c *Classifier) offline() bool {
	return c.connectivity != nil && !c.connectivity.IsOnline()
}

// classify applies the ordered rules; the first match wins.
func (c *Classifier) classify(f RawFailure) domain.ErrorType {
	// Pipeline terminals and caller cancellation are never network or auth
	// failures, whatever the link state.
	if f.Pipeline || f.IsCancelled {
		return domain.ErrorTypeSystem
	}

	msg := strings.ToLower(f.Message)
	code := strings.ToUpper(f.Code)

	switch {
	case f.HasValidationPayload || f.StatusCode == 422:
		return domain.ErrorTypeValidation

	case f.IsNetworkError || f.IsOffline || f.IsTimeout ||
		containsAny(msg, timeoutKeywords) || containsAny(msg, connectionKeywords) ||
		c.offline():
		return domain.ErrorTypeNetwork

	case f.StatusCode == 401 || f.StatusCode == 403 || containsAny(msg, authKeywords):
		return domain.ErrorTypeAuthentication

	case f.IsAuthorization || code == "PERMISSION_DENIED" || code == "FORBIDDEN":
		return domain.ErrorTypeAuthorization

	case f.IsUpload || f.StatusCode == 413 || f.StatusCode == 415 ||
		uploadCodes[code] || uploadPattern.MatchString(msg):
		return domain.ErrorTypeFileUpload

	case f.IsBusinessLogic || businessStatuses[f.StatusCode] || conflictCodes[code]:
		return domain.ErrorTypeBusinessLogic

	case f.StatusCode >= 500 || f.IsGoError:
		return domain.ErrorTypeSystem
	}
	return domain.ErrorTypeUnknown
}

func severityFor(t domain.ErrorType, f RawFailure, offline bool) domain.Severity {
	switch t {
	case domain.ErrorTypeNetwork:
		if f.IsOffline || offline || f.StatusCode >= 500 {
			return domain.SeverityHigh
		}
	case domain.ErrorTypeAuthentication:
		if f.StatusCode == 401 {
			return domain.SeverityHigh
		}
	case domain.ErrorTypeSystem:
		if f.IsCancelled && !f.Pipeline {
			return domain.SeverityLow
		}
		if f.StatusCode >= 500 {
			return domain.SeverityHigh
		}
	}
	return domain.SeverityMedium
}

var (
	timeoutKeywords    = []string{"timeout", "timed out", "deadline exceeded"}
	connectionKeywords = []string{
		"connection refused", "econnrefused", "connection reset",
		"network error", "no such host", "failed to fetch", "network is unreachable",
	}
	authKeywords = []string{
		"unauthorized", "unauthenticated", "not authenticated", "authentication",
		"invalid token", "token expired", "session expired", "login required",
	}
	uploadPattern = regexp.MustCompile(`\b(upload(s|ed|ing)?|files?)\b`)

	uploadCodes = map[string]bool{
		"FILE_TOO_LARGE":         true,
		"INVALID_FILE_TYPE":      true,
		"UNSUPPORTED_MEDIA_TYPE": true,
		"UPLOAD_FAILED":          true,
	}
	conflictCodes = map[string]bool{
		"DUPLICATE_RESOURCE": true,
		"RESOURCE_EXISTS":    true,
		"CONFLICT":           true,
		"RATE_LIMITED":       true,
		"INVALID_STATE":      true,
		"RESOURCE_LOCKED":    true,
		"ALREADY_EXISTS":     true,
	}
	businessStatuses = map[int]bool{400: true, 409: true, 423: true, 429: true}
)

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func code(f RawFailure) string {
	if f.Code != "" {
		return f.Code
	}
	if f.StatusCode != 0 {
		return strconv.Itoa(f.StatusCode)
	}
	return ""
}

func contextLabel(o options) string {
	if o.context != "" {
		return o.context
	}
	if o.request != nil {
		return o.request.Label
	}
	return ""
}

func technicalMessage(f RawFailure, req *domain.Request) string {
	msg := f.Stack
	if msg == "" {
		msg = f.Detail
	}
	if msg == "" {
		msg = f.Message
	}
	if req != nil && req.Method != "" {
		msg = fmt.Sprintf("%s %s: %s", req.Method, req.Path, msg)
	}
	return msg
}
