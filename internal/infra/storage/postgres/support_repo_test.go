package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/dashclient/internal/core/domain"
)

// setupTestDB connects to DASHCLIENT_TEST_DATABASE_URL and migrates it.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("DASHCLIENT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DASHCLIENT_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestSupportTicketRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSupportTicketRepo(db)
	ctx := context.Background()

	errorID := uuid.New().String()
	before, err := repo.Count(ctx)
	require.NoError(t, err)

	req := &domain.SupportRequest{
		ErrorID:   errorID,
		ErrorType: domain.ErrorTypeSystem,
		Severity:  "high",
		Code:      "503",
		Message:   "service unavailable",
		Context:   "reports.list",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Actions:   []string{"reload_page", "contact_support"},
	}
	require.NoError(t, repo.Save(ctx, req))
	assert.NotEmpty(t, req.ID)

	after, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	tickets, err := repo.GetByErrorID(ctx, errorID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, req.ID, tickets[0].ID)
	assert.Equal(t, domain.ErrorTypeSystem, tickets[0].ErrorType)
	assert.Equal(t, []string{"reload_page", "contact_support"}, tickets[0].Actions)
	assert.True(t, req.Timestamp.Equal(tickets[0].Timestamp))
}

func TestNewDB_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewDB(ctx, Config{URL: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"})
	assert.Error(t, err)
}
