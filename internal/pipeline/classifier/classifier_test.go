package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage/memory"
	"github.com/vietddude/dashclient/internal/infra/transport"
	"github.com/vietddude/dashclient/internal/pipeline/recovery"
)

type staticChecker bool

func (s staticChecker) IsOnline() bool { return bool(s) }

type panicky struct{}

func (panicky) Error() string { panic("boom") }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func httpErr(code int, body string) *transport.HTTPError {
	return &transport.HTTPError{
		Method:     http.MethodGet,
		URL:        "https://api.example.com/reports",
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Body:       []byte(body),
	}
}

func TestClassify(t *testing.T) {
	c := New(nil, nil, nil, quietLogger())

	tests := []struct {
		name     string
		raw      any
		wantType domain.ErrorType
		wantSev  domain.Severity
		wantCode string
	}{
		{"nil", nil, domain.ErrorTypeUnknown, domain.SeverityMedium, ""},
		{"plain string", "something odd", domain.ErrorTypeUnknown, domain.SeverityMedium, ""},
		{"unrecognised map", map[string]any{"foo": "bar"}, domain.ErrorTypeUnknown, domain.SeverityMedium, ""},
		{"422", httpErr(422, ""), domain.ErrorTypeValidation, domain.SeverityMedium, "422"},
		{"400 with field errors", httpErr(400, `{"error":{"message":"bad input","errors":{"title":["required"]}}}`), domain.ErrorTypeValidation, domain.SeverityMedium, "400"},
		{"401", httpErr(401, ""), domain.ErrorTypeAuthentication, domain.SeverityHigh, "401"},
		{"403", httpErr(403, ""), domain.ErrorTypeAuthentication, domain.SeverityMedium, "403"},
		{"404", httpErr(404, ""), domain.ErrorTypeSystem, domain.SeverityMedium, "404"},
		{"409 conflict code", httpErr(409, `{"error":{"code":"DUPLICATE_RESOURCE","message":"already exists"}}`), domain.ErrorTypeBusinessLogic, domain.SeverityMedium, "DUPLICATE_RESOURCE"},
		{"413", httpErr(413, ""), domain.ErrorTypeFileUpload, domain.SeverityMedium, "413"},
		{"429", httpErr(429, ""), domain.ErrorTypeBusinessLogic, domain.SeverityMedium, "429"},
		{"500", httpErr(500, ""), domain.ErrorTypeSystem, domain.SeverityHigh, "500"},
		{"503", httpErr(503, ""), domain.ErrorTypeSystem, domain.SeverityHigh, "503"},
		{"504 gateway timeout", httpErr(504, ""), domain.ErrorTypeNetwork, domain.SeverityHigh, "504"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:80: connect: connection refused"), domain.ErrorTypeNetwork, domain.SeverityMedium, ""},
		{"deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), domain.ErrorTypeNetwork, domain.SeverityMedium, ""},
		{"canceled", context.Canceled, domain.ErrorTypeSystem, domain.SeverityLow, ""},
		{"offline", domain.ErrOffline, domain.ErrorTypeNetwork, domain.SeverityHigh, ""},
		{"queue full", fmt.Errorf("enqueue: %w", domain.ErrQueueFull), domain.ErrorTypeSystem, domain.SeverityMedium, domain.CodeQueueFull},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "not your report"), domain.ErrorTypeAuthorization, domain.SeverityMedium, "PermissionDenied"},
		{"grpc unavailable", status.Error(codes.Unavailable, "backend down"), domain.ErrorTypeNetwork, domain.SeverityMedium, "Unavailable"},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "token rejected"), domain.ErrorTypeAuthentication, domain.SeverityHigh, "Unauthenticated"},
		{"upload marker", &UploadError{Filename: "scan.png", Code: "FILE_TOO_LARGE"}, domain.ErrorTypeFileUpload, domain.SeverityMedium, "FILE_TOO_LARGE"},
		{"business marker", &BusinessError{Code: "INVALID_STATE", Message: "report already closed"}, domain.ErrorTypeBusinessLogic, domain.SeverityMedium, "INVALID_STATE"},
		{"validation marker", &ValidationError{Fields: map[string][]string{"email": {"invalid"}}}, domain.ErrorTypeValidation, domain.SeverityMedium, ""},
		{"profile is not a file", errors.New("profile not found"), domain.ErrorTypeSystem, domain.SeverityMedium, ""},
		{"plain go error", errors.New("boom"), domain.ErrorTypeSystem, domain.SeverityMedium, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.raw)
			if got.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Severity != tt.wantSev {
				t.Errorf("Severity = %s, want %s", got.Severity, tt.wantSev)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.ID == "" || got.UserMessage == "" || got.Message == "" {
				t.Errorf("incomplete error: %+v", got)
			}
			if got.Timestamp.IsZero() {
				t.Error("Timestamp not set")
			}
		})
	}
}

func TestUserMessage_EveryCombination(t *testing.T) {
	for _, typ := range domain.ErrorTypes {
		for _, sev := range domain.Severities {
			if UserMessage(typ, sev) == "" {
				t.Errorf("UserMessage(%s, %s) is empty", typ, sev)
			}
		}
	}
	if got := UserMessage("bogus", domain.SeverityHigh); got != defaultUserMessage {
		t.Errorf("fallback = %q, want %q", got, defaultUserMessage)
	}
}

func TestClassify_OfflineChecker(t *testing.T) {
	c := New(nil, nil, staticChecker(false), quietLogger())

	perr := c.Classify(errors.New("boom"))
	assert.Equal(t, domain.ErrorTypeNetwork, perr.Type)
	assert.Equal(t, domain.SeverityHigh, perr.Severity)

	// Pipeline terminals stay system errors while offline
	perr = c.Classify(domain.ErrQueueTimeout)
	assert.Equal(t, domain.ErrorTypeSystem, perr.Type)
	assert.Equal(t, domain.CodeQueueTimeout, perr.Code)
}

func TestClassify_WithSeverityOnlyRaises(t *testing.T) {
	c := New(nil, nil, nil, quietLogger())

	perr := c.Classify(httpErr(500, ""), WithSeverity(domain.SeverityLow))
	assert.Equal(t, domain.SeverityHigh, perr.Severity)

	perr = c.Classify(httpErr(404, ""), WithSeverity(domain.SeverityCritical))
	assert.Equal(t, domain.SeverityCritical, perr.Severity)
	_, ok := perr.Action(domain.RecoveryReloadPage)
	assert.True(t, ok)
	_, ok = perr.Action(domain.RecoveryContactSupport)
	assert.True(t, ok)
}

func TestClassify_RecoveryActions(t *testing.T) {
	creds := memory.NewCredentialStore("tok")
	nav := recovery.NewLogNavigator(quietLogger())
	reg := recovery.NewRegistry(recovery.Deps{Credentials: creds, Navigator: nav, Logger: quietLogger()})
	c := New(nil, reg, nil, quietLogger())

	t.Run("authentication", func(t *testing.T) {
		perr := c.Classify(httpErr(401, ""))
		require.NotEmpty(t, perr.RecoveryActions)
		first := perr.RecoveryActions[0]
		assert.Equal(t, domain.RecoveryReAuthenticate, first.Type)
		assert.True(t, first.Primary)

		require.NoError(t, first.Execute(context.Background()))
		assert.Equal(t, 1, creds.Clears())
		assert.Equal(t, []string{"/login"}, nav.Visited())
	})

	t.Run("network retry", func(t *testing.T) {
		calls := 0
		perr := c.Classify(errors.New("connection refused"), WithRetry(func(context.Context) error {
			calls++
			return nil
		}))
		primary, ok := perr.PrimaryAction()
		require.True(t, ok)
		assert.Equal(t, domain.RecoveryRetry, primary.Type)
		require.NoError(t, primary.Execute(context.Background()))
		assert.Equal(t, 1, calls)
	})

	t.Run("high severity", func(t *testing.T) {
		perr := c.Classify(httpErr(502, ""))
		var kinds []domain.RecoveryActionType
		for _, a := range perr.RecoveryActions {
			kinds = append(kinds, a.Type)
			assert.False(t, a.Primary)
		}
		assert.Equal(t, []domain.RecoveryActionType{domain.RecoveryReloadPage, domain.RecoveryContactSupport}, kinds)
	})

	t.Run("medium has none", func(t *testing.T) {
		perr := c.Classify(httpErr(404, ""))
		assert.Empty(t, perr.RecoveryActions)
	})
}

func TestClassify_StoresEveryError(t *testing.T) {
	store := memory.NewErrorStore()
	c := New(store, nil, nil, quietLogger())

	first := c.Classify("one")
	second := c.Classify(httpErr(500, ""))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, store.Count())

	got, err := store.Get(second.ID)
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestClassify_Options(t *testing.T) {
	c := New(nil, nil, nil, quietLogger())
	req := domain.Request{Method: http.MethodGet, Path: "/reports", Label: "reports.list"}

	perr := c.Classify(httpErr(404, ""), WithRequest(req))
	assert.Equal(t, "reports.list", perr.Context)
	assert.Contains(t, perr.TechnicalMessage, "GET /reports")

	perr = c.Classify(httpErr(404, ""), WithRequest(req), WithContext("moderation.queue"))
	assert.Equal(t, "moderation.queue", perr.Context)
}

func TestClassify_ProcessedErrorPassesThrough(t *testing.T) {
	c := New(nil, nil, nil, quietLogger())
	perr := c.Classify(httpErr(500, ""))
	assert.Same(t, perr, c.Classify(perr))
}

func TestClassify_RecoversFromPanic(t *testing.T) {
	store := memory.NewErrorStore()
	c := New(store, nil, nil, quietLogger())

	var perr *domain.ProcessedError
	require.NotPanics(t, func() { perr = c.Classify(panicky{}) })
	assert.Equal(t, domain.ErrorTypeUnknown, perr.Type)
	assert.Equal(t, defaultUserMessage, perr.UserMessage)
	assert.Equal(t, 1, store.Count())
}

func TestNormalize_Envelope(t *testing.T) {
	e := httpErr(400, `{"success":false,"error":{"message":"title too long","code":"TITLE_LENGTH","details":{"max":120}}}`)
	e.RetryAfter = 3 * time.Second

	f := Normalize(e)
	assert.Equal(t, 400, f.StatusCode)
	assert.Equal(t, "title too long", f.Message)
	assert.Equal(t, "TITLE_LENGTH", f.Code)
	assert.Equal(t, `{"max":120}`, f.Detail)
	assert.Equal(t, 3*time.Second, f.RetryAfter)
	assert.False(t, f.IsNetworkError)
}

func TestNormalize_NonJSONBody(t *testing.T) {
	f := Normalize(httpErr(502, "<html>bad gateway</html>"))
	assert.Equal(t, "HTTP 502: Bad Gateway", f.Message)
	assert.Equal(t, "<html>bad gateway</html>", f.Detail)
}

func TestNormalize_GRPCDetails(t *testing.T) {
	st, err := status.New(codes.ResourceExhausted, "slow down").WithDetails(
		&errdetails.RetryInfo{RetryDelay: durationpb.New(2 * time.Second)},
	)
	require.NoError(t, err)

	f := Normalize(st.Err())
	assert.Equal(t, 2*time.Second, f.RetryAfter)
	assert.Equal(t, 429, f.StatusCode)
	assert.True(t, f.IsBusinessLogic)

	st, err = status.New(codes.InvalidArgument, "bad request").WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: "email", Description: "must be set"},
		},
	})
	require.NoError(t, err)

	f = Normalize(st.Err())
	assert.True(t, f.HasValidationPayload)
	assert.Equal(t, map[string][]string{"email": {"must be set"}}, f.ValidationErrors)
}

func TestNormalize_ArrayValidationErrors(t *testing.T) {
	f := Normalize(map[string]any{
		"message": "invalid",
		"errors": []any{
			map[string]any{"field": "name", "message": "required"},
			map[string]any{"field": "name", "message": "too short"},
		},
	})
	assert.True(t, f.HasValidationPayload)
	assert.Equal(t, []string{"required", "too short"}, f.ValidationErrors["name"])
}
