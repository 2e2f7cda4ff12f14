package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
)

// LogNavigator records navigation requests in the log. It is used when the
// client runs headless.
type LogNavigator struct {
	log *slog.Logger

	mu      sync.Mutex
	visited []string
	reloads int
}

func NewLogNavigator(log *slog.Logger) *LogNavigator {
	if log == nil {
		log = slog.Default()
	}
	return &LogNavigator{log: log}
}

func (n *LogNavigator) Navigate(ctx context.Context, target string) error {
	n.mu.Lock()
	n.visited = append(n.visited, target)
	n.mu.Unlock()
	n.log.Info("Navigating", "target", target)
	return nil
}

func (n *LogNavigator) Reload(ctx context.Context) error {
	n.mu.Lock()
	n.reloads++
	n.mu.Unlock()
	n.log.Info("Reloading application")
	return nil
}

// Visited returns the navigation targets seen so far.
func (n *LogNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}

// Reloads returns how many reloads were requested.
func (n *LogNavigator) Reloads() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reloads
}

// MailtoSink turns a support request into a pre-filled mailto link.
type MailtoSink struct {
	address string
	log     *slog.Logger

	mu   sync.Mutex
	last string
}

func NewMailtoSink(address string, log *slog.Logger) *MailtoSink {
	if address == "" {
		address = "support@example.com"
	}
	if log == nil {
		log = slog.Default()
	}
	return &MailtoSink{address: address, log: log}
}

func (s *MailtoSink) OpenSupport(ctx context.Context, req domain.SupportRequest) error {
	link := s.Link(req)
	s.mu.Lock()
	s.last = link
	s.mu.Unlock()
	s.log.Info("Support contact prepared", "error_id", req.ErrorID, "link", link)
	return nil
}

// Last returns the most recent link.
func (s *MailtoSink) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Link builds the mailto URL with the error metadata embedded.
func (s *MailtoSink) Link(req domain.SupportRequest) string {
	var body strings.Builder
	fmt.Fprintf(&body, "Error ID: %s\n", req.ErrorID)
	fmt.Fprintf(&body, "Type: %s\n", req.ErrorType)
	fmt.Fprintf(&body, "Severity: %s\n", req.Severity)
	if req.Code != "" {
		fmt.Fprintf(&body, "Code: %s\n", req.Code)
	}
	if req.Context != "" {
		fmt.Fprintf(&body, "Context: %s\n", req.Context)
	}
	fmt.Fprintf(&body, "Message: %s\n", req.Message)
	fmt.Fprintf(&body, "Time: %s\n", req.Timestamp.UTC().Format(time.RFC3339))

	q := url.Values{}
	q.Set("subject", fmt.Sprintf("Error report %s", req.ErrorID))
	q.Set("body", body.String())

	return (&url.URL{
		Scheme:   "mailto",
		Opaque:   s.address,
		RawQuery: strings.ReplaceAll(q.Encode(), "+", "%20"),
	}).String()
}

// RepositorySink files support requests as tickets in a repository.
type RepositorySink struct {
	repo storage.SupportTicketRepository
	log  *slog.Logger
}

func NewRepositorySink(repo storage.SupportTicketRepository, log *slog.Logger) *RepositorySink {
	if log == nil {
		log = slog.Default()
	}
	return &RepositorySink{repo: repo, log: log}
}

func (s *RepositorySink) OpenSupport(ctx context.Context, req domain.SupportRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if err := s.repo.Save(ctx, &req); err != nil {
		return fmt.Errorf("file support ticket: %w", err)
	}
	s.log.Info("Support ticket filed", "ticket_id", req.ID, "error_id", req.ErrorID)
	return nil
}

var (
	_ Navigator   = (*LogNavigator)(nil)
	_ SupportSink = (*MailtoSink)(nil)
	_ SupportSink = (*RepositorySink)(nil)
)
