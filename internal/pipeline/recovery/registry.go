// Package recovery is the static catalog of remedies a classified error can
// offer: retry, re-authenticate, reload and contact support.
//
// Effects are deliberately small. The retry effect re-sends once through the
// dispatcher's budgeted path and never loops on its own.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
)

// ErrNothingToRetry is returned by a retry effect with no request attached.
var ErrNothingToRetry = errors.New("no request to retry")

// Navigator moves the host application between entry points.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
	Reload(ctx context.Context) error
}

// SupportSink receives pre-filled contact-support requests.
type SupportSink interface {
	OpenSupport(ctx context.Context, req domain.SupportRequest) error
}

// Deps are the collaborators the effects act on.
type Deps struct {
	Credentials storage.CredentialStore
	Navigator   Navigator
	Support     SupportSink
	LoginPath   string
	Logger      *slog.Logger
}

// Input carries what an effect needs to know about the failure.
type Input struct {
	Error   *domain.ProcessedError
	Retry   func(ctx context.Context) error
	Primary bool
}

type template struct {
	label       string
	description string
}

var templates = map[domain.RecoveryActionType]template{
	domain.RecoveryRetry: {
		label:       "Try again",
		description: "Send the request again.",
	},
	domain.RecoveryReAuthenticate: {
		label:       "Sign in again",
		description: "Your session is no longer valid. Sign in to continue.",
	},
	domain.RecoveryReloadPage: {
		label:       "Reload",
		description: "Reload the application to recover from an inconsistent state.",
	},
	domain.RecoveryContactSupport: {
		label:       "Contact support",
		description: "Send the error details to the support team.",
	},
}

// Registry builds recovery actions.
type Registry struct {
	deps Deps
	log  *slog.Logger
}

// NewRegistry creates a registry. Missing collaborators fall back to
// logging-only implementations.
func NewRegistry(deps Deps) *Registry {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Navigator == nil {
		deps.Navigator = NewLogNavigator(log)
	}
	if deps.Support == nil {
		deps.Support = NewMailtoSink("", log)
	}
	if deps.LoginPath == "" {
		deps.LoginPath = "/login"
	}
	return &Registry{deps: deps, log: log}
}

// Label returns the label and description of an action type.
func Label(t domain.RecoveryActionType) (string, string) {
	tpl, ok := templates[t]
	if !ok {
		return string(t), ""
	}
	return tpl.label, tpl.description
}

// Action returns the action of the given type bound to in.
func (r *Registry) Action(t domain.RecoveryActionType, in Input) domain.RecoveryAction {
	label, description := Label(t)
	action := domain.RecoveryAction{
		Type:        t,
		Label:       label,
		Description: description,
		Primary:     in.Primary,
	}

	switch t {
	case domain.RecoveryRetry:
		action.Effect = r.retryEffect(in)
	case domain.RecoveryReAuthenticate:
		action.Effect = r.ReAuthenticate
	case domain.RecoveryReloadPage:
		action.Effect = r.deps.Navigator.Reload
	case domain.RecoveryContactSupport:
		action.Effect = r.supportEffect(in)
	default:
		action.Effect = func(context.Context) error {
			return fmt.Errorf("unknown recovery action %q", t)
		}
	}
	return action
}

func (r *Registry) retryEffect(in Input) func(context.Context) error {
	return func(ctx context.Context) error {
		if in.Retry == nil {
			return ErrNothingToRetry
		}
		return in.Retry(ctx)
	}
}

// ReAuthenticate clears stored credentials and sends the user to the login
// entry point.
func (r *Registry) ReAuthenticate(ctx context.Context) error {
	var errs []error
	if r.deps.Credentials != nil {
		if err := r.deps.Credentials.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear credentials: %w", err))
		}
	}
	if err := r.deps.Navigator.Navigate(ctx, r.deps.LoginPath); err != nil {
		errs = append(errs, fmt.Errorf("navigate to login: %w", err))
	}
	if len(errs) > 0 {
		r.log.Warn("Re-authentication incomplete", "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

func (r *Registry) supportEffect(in Input) func(context.Context) error {
	return func(ctx context.Context) error {
		return r.deps.Support.OpenSupport(ctx, NewSupportRequest(in.Error))
	}
}

// NewSupportRequest pre-fills a support request from a classified error.
func NewSupportRequest(perr *domain.ProcessedError) domain.SupportRequest {
	if perr == nil {
		return domain.SupportRequest{Timestamp: time.Now().UTC()}
	}
	actions := make([]string, 0, len(perr.RecoveryActions))
	for _, a := range perr.RecoveryActions {
		actions = append(actions, string(a.Type))
	}
	return domain.SupportRequest{
		ErrorID:   perr.ID,
		ErrorType: perr.Type,
		Severity:  perr.Severity.String(),
		Code:      perr.Code,
		Message:   perr.Message,
		Context:   perr.Context,
		Timestamp: perr.Timestamp,
		Actions:   actions,
	}
}
