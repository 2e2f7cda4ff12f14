package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
)

// -----------------------------------------------------------------------------
// Error Store
// -----------------------------------------------------------------------------

// ErrorStore keeps classified errors in memory. It is reset on restart.
type ErrorStore struct {
	mu     sync.RWMutex
	errors map[string]*domain.ProcessedError
	order  []string
}

func NewErrorStore() *ErrorStore {
	return &ErrorStore{
		errors: make(map[string]*domain.ProcessedError),
	}
}

func (s *ErrorStore) Save(perr *domain.ProcessedError) {
	if perr == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.errors[perr.ID]; !exists {
		s.order = append(s.order, perr.ID)
	}
	s.errors[perr.ID] = perr
}

func (s *ErrorStore) Get(id string) (*domain.ProcessedError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perr, ok := s.errors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrErrorNotFound, id)
	}
	return perr, nil
}

func (s *ErrorStore) List() []*domain.ProcessedError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ProcessedError, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.errors[id])
	}
	return out
}

func (s *ErrorStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.errors[id]; !ok {
		return false
	}
	delete(s.errors, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ErrorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = make(map[string]*domain.ProcessedError)
	s.order = nil
}

func (s *ErrorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errors)
}

// -----------------------------------------------------------------------------
// Credential Store
// -----------------------------------------------------------------------------

// CredentialStore holds the token in memory only.
type CredentialStore struct {
	mu    sync.RWMutex
	token string

	clears int
}

func NewCredentialStore(token string) *CredentialStore {
	return &CredentialStore{token: token}
}

func (s *CredentialStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", storage.ErrNoCredential
	}
	return s.token, nil
}

func (s *CredentialStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

// Clears returns how many times Clear was called.
func (s *CredentialStore) Clears() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clears
}

// -----------------------------------------------------------------------------
// Support Ticket Repository
// -----------------------------------------------------------------------------

type SupportTicketRepo struct {
	mu      sync.RWMutex
	tickets []*domain.SupportRequest
}

func NewSupportTicketRepo() *SupportTicketRepo {
	return &SupportTicketRepo{}
}

func (r *SupportTicketRepo) Save(ctx context.Context, req *domain.SupportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, req)
	return nil
}

func (r *SupportTicketRepo) GetByErrorID(ctx context.Context, errorID string) ([]*domain.SupportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SupportRequest
	for _, t := range r.tickets {
		if t.ErrorID == errorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *SupportTicketRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets), nil
}

var (
	_ storage.ErrorStore              = (*ErrorStore)(nil)
	_ storage.CredentialStore         = (*CredentialStore)(nil)
	_ storage.SupportTicketRepository = (*SupportTicketRepo)(nil)
)
