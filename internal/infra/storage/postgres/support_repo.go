package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
)

// SupportTicketRepo stores contact-support requests.
type SupportTicketRepo struct {
	db *DB
}

func NewSupportTicketRepo(db *DB) *SupportTicketRepo {
	return &SupportTicketRepo{db: db}
}

type ticketRow struct {
	ID         string         `db:"id"`
	ErrorID    string         `db:"error_id"`
	ErrorType  string         `db:"error_type"`
	Severity   string         `db:"severity"`
	Code       string         `db:"code"`
	Message    string         `db:"message"`
	Context    string         `db:"context"`
	Actions    pq.StringArray `db:"actions"`
	OccurredAt time.Time      `db:"occurred_at"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r ticketRow) toDomain() *domain.SupportRequest {
	return &domain.SupportRequest{
		ID:        r.ID,
		ErrorID:   r.ErrorID,
		ErrorType: domain.ErrorType(r.ErrorType),
		Severity:  r.Severity,
		Code:      r.Code,
		Message:   r.Message,
		Context:   r.Context,
		Timestamp: r.OccurredAt,
		Actions:   []string(r.Actions),
		CreatedAt: r.CreatedAt,
	}
}

func (r *SupportTicketRepo) Save(ctx context.Context, req *domain.SupportRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	row := ticketRow{
		ID:         req.ID,
		ErrorID:    req.ErrorID,
		ErrorType:  string(req.ErrorType),
		Severity:   req.Severity,
		Code:       req.Code,
		Message:    req.Message,
		Context:    req.Context,
		Actions:    pq.StringArray(req.Actions),
		OccurredAt: req.Timestamp,
		CreatedAt:  req.CreatedAt,
	}
	if row.Actions == nil {
		row.Actions = pq.StringArray{}
	}

	query := `
		INSERT INTO support_tickets
			(id, error_id, error_type, severity, code, message, context, actions, occurred_at, created_at)
		VALUES
			(:id, :error_id, :error_type, :severity, :code, :message, :context, :actions, :occurred_at, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to insert support ticket: %w", err)
	}
	return nil
}

func (r *SupportTicketRepo) GetByErrorID(ctx context.Context, errorID string) ([]*domain.SupportRequest, error) {
	var rows []ticketRow
	query := `
		SELECT id, error_id, error_type, severity, code, message, context, actions, occurred_at, created_at
		FROM support_tickets
		WHERE error_id = $1
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &rows, query, errorID); err != nil {
		return nil, fmt.Errorf("failed to query support tickets: %w", err)
	}

	out := make([]*domain.SupportRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SupportTicketRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM support_tickets"); err != nil {
		return 0, fmt.Errorf("failed to count support tickets: %w", err)
	}
	return count, nil
}

var _ storage.SupportTicketRepository = (*SupportTicketRepo)(nil)
