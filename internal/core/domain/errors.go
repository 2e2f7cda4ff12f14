package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ErrorType is the category a failure is classified into.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeBusinessLogic  ErrorType = "business_logic"
	ErrorTypeFileUpload     ErrorType = "file_upload"
	ErrorTypeSystem         ErrorType = "system"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// ErrorTypes lists every type of the taxonomy.
var ErrorTypes = []ErrorType{
	ErrorTypeValidation,
	ErrorTypeNetwork,
	ErrorTypeAuthentication,
	ErrorTypeAuthorization,
	ErrorTypeBusinessLogic,
	ErrorTypeFileUpload,
	ErrorTypeSystem,
	ErrorTypeUnknown,
}

// Severity ranks how bad a failure is. Values are ordered.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists every severity, lowest first.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity converts a name like "high" into a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityMedium, fmt.Errorf("unknown severity %q", name)
}

// AtLeast reports whether s is ranked at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// RecoveryActionType identifies a remedy a UI can offer.
type RecoveryActionType string

const (
	RecoveryRetry          RecoveryActionType = "retry"
	RecoveryReAuthenticate RecoveryActionType = "re_authenticate"
	RecoveryReloadPage     RecoveryActionType = "reload_page"
	RecoveryContactSupport RecoveryActionType = "contact_support"
)

// RecoveryAction is a labelled, executable remedy attached to a ProcessedError.
type RecoveryAction struct {
	Type        RecoveryActionType `json:"type"`
	Label       string             `json:"label"`
	Description string             `json:"description"`
	Primary     bool               `json:"primary"`

	// Effect performs the remedy. It is never nil for actions built by the
	// recovery registry.
	Effect func(ctx context.Context) error `json:"-"`
}

// Execute runs the action effect.
func (a RecoveryAction) Execute(ctx context.Context) error {
	if a.Effect == nil {
		return fmt.Errorf("recovery action %s has no effect", a.Type)
	}
	return a.Effect(ctx)
}

// ProcessedError is the classified form of a failure. It is created once and
// must be treated as read-only afterwards.
type ProcessedError struct {
	ID               string           `json:"id"`
	Type             ErrorType        `json:"type"`
	Severity         Severity         `json:"severity"`
	Message          string           `json:"message"`
	UserMessage      string           `json:"user_message"`
	TechnicalMessage string           `json:"technical_message,omitempty"`
	Code             string           `json:"code,omitempty"`
	Context          string           `json:"context,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
	Stack            string           `json:"stack,omitempty"`
	RecoveryActions  []RecoveryAction `json:"recovery_actions,omitempty"`

	// Details carries structured server detail (validation errors etc).
	Details any `json:"details,omitempty"`

	// Original is kept for diagnostics only.
	Original any `json:"-"`
}

// Error implements error.
func (e *ProcessedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error (%s, code %s): %s", e.Type, e.Severity, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Type, e.Severity, e.Message)
}

// Unwrap exposes the original failure when it is an error.
func (e *ProcessedError) Unwrap() error {
	if err, ok := e.Original.(error); ok {
		return err
	}
	return nil
}

// Action returns the first recovery action of the given type.
func (e *ProcessedError) Action(t RecoveryActionType) (RecoveryAction, bool) {
	for _, a := range e.RecoveryActions {
		if a.Type == t {
			return a, true
		}
	}
	return RecoveryAction{}, false
}

// PrimaryAction returns the action flagged primary, if any.
func (e *ProcessedError) PrimaryAction() (RecoveryAction, bool) {
	for _, a := range e.RecoveryActions {
		if a.Primary {
			return a, true
		}
	}
	return RecoveryAction{}, false
}

// SupportRequest is the pre-filled payload of the contact-support action.
type SupportRequest struct {
	ID        string    `json:"id"         db:"id"`
	ErrorID   string    `json:"error_id"   db:"error_id"`
	ErrorType ErrorType `json:"error_type" db:"error_type"`
	Severity  string    `json:"severity"   db:"severity"`
	Code      string    `json:"code"       db:"code"`
	Message   string    `json:"message"    db:"message"`
	Context   string    `json:"context"    db:"context"`
	Timestamp time.Time `json:"timestamp"  db:"occurred_at"`
	Actions   []string  `json:"actions"    db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
