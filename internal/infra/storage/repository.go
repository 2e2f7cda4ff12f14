package storage

import (
	"context"
	"errors"

	"github.com/vietddude/dashclient/internal/core/domain"
)

// CredentialKey is the fixed key the auth token is persisted under.
const CredentialKey = "auth_token"

var (
	// ErrNoCredential is returned when no token is stored
	ErrNoCredential = errors.New("no credential stored")

	// ErrErrorNotFound is returned when an error id is not in the store
	ErrErrorNotFound = errors.New("processed error not found")
)

// ErrorStore keeps every classified error keyed by id. It never evicts on its
// own; callers delete by id or clear everything.
type ErrorStore interface {
	// Save records a classified error (create-on-write)
	Save(perr *domain.ProcessedError)

	// Get retrieves an error by id
	Get(id string) (*domain.ProcessedError, error)

	// List returns all stored errors, oldest first
	List() []*domain.ProcessedError

	// Delete removes one error
	Delete(id string) bool

	// Clear removes every error
	Clear()

	// Count returns the number of stored errors
	Count() int
}

// CredentialStore persists the auth token. Reads return a point-in-time copy;
// writes are last-writer-wins.
type CredentialStore interface {
	// Get returns the current token or ErrNoCredential
	Get(ctx context.Context) (string, error)

	// Set stores a token
	Set(ctx context.Context, token string) error

	// Clear removes the token
	Clear(ctx context.Context) error
}

// SupportTicketRepository persists contact-support requests
type SupportTicketRepository interface {
	// Save stores a support request
	Save(ctx context.Context, req *domain.SupportRequest) error

	// GetByErrorID returns the tickets opened for one error
	GetByErrorID(ctx context.Context, errorID string) ([]*domain.SupportRequest, error)

	// Count returns the number of stored tickets
	Count(ctx context.Context) (int, error)
}
