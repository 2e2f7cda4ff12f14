package recovery

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
	"github.com/vietddude/dashclient/internal/infra/storage/memory"
)

type failingNavigator struct{}

func (failingNavigator) Navigate(context.Context, string) error { return errors.New("no window") }
func (failingNavigator) Reload(context.Context) error          { return errors.New("no window") }

func sampleError() *domain.ProcessedError {
	return &domain.ProcessedError{
		ID:        "err-1",
		Type:      domain.ErrorTypeSystem,
		Severity:  domain.SeverityHigh,
		Message:   "upstream exploded",
		Code:      "503",
		Context:   "reports.list",
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegistry_Labels(t *testing.T) {
	reg := NewRegistry(Deps{})

	for _, kind := range []domain.RecoveryActionType{
		domain.RecoveryRetry,
		domain.RecoveryReAuthenticate,
		domain.RecoveryReloadPage,
		domain.RecoveryContactSupport,
	} {
		a := reg.Action(kind, Input{Error: sampleError(), Primary: true})
		assert.Equal(t, kind, a.Type)
		assert.NotEmpty(t, a.Label, kind)
		assert.NotEmpty(t, a.Description, kind)
		assert.True(t, a.Primary)
		assert.NotNil(t, a.Effect)
	}
}

func TestRegistry_RetryRunsOnce(t *testing.T) {
	reg := NewRegistry(Deps{})

	calls := 0
	a := reg.Action(domain.RecoveryRetry, Input{
		Retry: func(context.Context) error {
			calls++
			return errors.New("still failing")
		},
	})

	err := a.Execute(context.Background())
	assert.EqualError(t, err, "still failing")
	assert.Equal(t, 1, calls)
}

func TestRegistry_RetryWithoutRequest(t *testing.T) {
	reg := NewRegistry(Deps{})
	a := reg.Action(domain.RecoveryRetry, Input{})
	assert.ErrorIs(t, a.Execute(context.Background()), ErrNothingToRetry)
}

func TestRegistry_ReAuthenticate(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore("tok")
	nav := NewLogNavigator(nil)
	reg := NewRegistry(Deps{Credentials: creds, Navigator: nav, LoginPath: "/signin"})

	a := reg.Action(domain.RecoveryReAuthenticate, Input{Error: sampleError()})
	require.NoError(t, a.Execute(ctx))

	_, err := creds.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrNoCredential)
	assert.Equal(t, 1, creds.Clears())
	assert.Equal(t, []string{"/signin"}, nav.Visited())
}

func TestRegistry_ReAuthenticateStillClearsWhenNavigationFails(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore("tok")
	reg := NewRegistry(Deps{Credentials: creds, Navigator: failingNavigator{}})

	err := reg.ReAuthenticate(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, creds.Clears())
}

func TestRegistry_Reload(t *testing.T) {
	nav := NewLogNavigator(nil)
	reg := NewRegistry(Deps{Navigator: nav})

	require.NoError(t, reg.Action(domain.RecoveryReloadPage, Input{}).Execute(context.Background()))
	assert.Equal(t, 1, nav.Reloads())
}

func TestRegistry_ContactSupportMailto(t *testing.T) {
	sink := NewMailtoSink("help@dash.test", nil)
	reg := NewRegistry(Deps{Support: sink})

	perr := sampleError()
	perr.RecoveryActions = []domain.RecoveryAction{
		reg.Action(domain.RecoveryReloadPage, Input{Error: perr}),
		reg.Action(domain.RecoveryContactSupport, Input{Error: perr}),
	}

	action, ok := perr.Action(domain.RecoveryContactSupport)
	require.True(t, ok)
	require.NoError(t, action.Execute(context.Background()))

	link := sink.Last()
	require.True(t, strings.HasPrefix(link, "mailto:help@dash.test?"), link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	body := u.Query().Get("body")
	assert.Contains(t, body, "Error ID: err-1")
	assert.Contains(t, body, "Type: system")
	assert.Contains(t, body, "Message: upstream exploded")
	assert.Contains(t, body, "2024-05-01T10:00:00Z")
	assert.Equal(t, "Error report err-1", u.Query().Get("subject"))
}

func TestRegistry_ContactSupportRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSupportTicketRepo()
	reg := NewRegistry(Deps{Support: NewRepositorySink(repo, nil)})

	perr := sampleError()
	perr.RecoveryActions = []domain.RecoveryAction{
		reg.Action(domain.RecoveryReloadPage, Input{Error: perr}),
		reg.Action(domain.RecoveryContactSupport, Input{Error: perr}),
	}
	action, _ := perr.Action(domain.RecoveryContactSupport)
	require.NoError(t, action.Execute(ctx))

	tickets, err := repo.GetByErrorID(ctx, "err-1")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.NotEmpty(t, tickets[0].ID)
	assert.Equal(t, "high", tickets[0].Severity)
	assert.Equal(t, []string{"reload_page", "contact_support"}, tickets[0].Actions)
}
