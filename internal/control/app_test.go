package control

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/dashclient/internal/core/config"
	"github.com/vietddude/dashclient/internal/core/domain"
	redisclient "github.com/vietddude/dashclient/internal/infra/redis"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(endpoint string) *config.AppConfig {
	client := config.DefaultClientConfig()
	client.BaseEndpoint = endpoint
	client.RetryDelay = time.Millisecond
	client.MaxRetryDelay = 5 * time.Millisecond
	return &config.AppConfig{
		Client:       client,
		Connectivity: config.ConnectivityConfig{HealthPath: "/health", ProbeTimeout: time.Second},
		Credentials:  config.CredentialsConfig{Store: "memory"},
		Support:      config.SupportConfig{Sink: "log", Email: "support@example.com"},
		Server:       config.ServerConfig{Port: 0},
	}
}

func TestApp_SendThroughPipeline(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reports":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(api.URL), quietLogger())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Credentials.Set(ctx, "tok"))

	r := app.Dispatcher.Send(ctx, domain.Request{Method: http.MethodGet, Path: "/reports"})
	require.True(t, r.Success)
	assert.JSONEq(t, `[{"id":1}]`, string(r.Data))

	r = app.Dispatcher.Send(ctx, domain.Request{Method: http.MethodGet, Path: "/missing"})
	require.False(t, r.Success)
	assert.Equal(t, "404", r.Error.Code)
	assert.Equal(t, 1, app.Errors.Count())

	// 401 clears the stored credential
	require.NoError(t, app.Credentials.Set(ctx, "stale"))
	r = app.Dispatcher.Send(ctx, domain.Request{Method: http.MethodGet, Path: "/reports"})
	require.False(t, r.Success)
	_, err = app.Credentials.Get(ctx)
	assert.Error(t, err)
}

func TestOpenCredentials_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig("http://api.test")
	cfg.Credentials.Store = "redis"
	cfg.Redis = redisclient.Config{URL: "redis://" + mr.Addr()}

	store, closeFn, err := OpenCredentials(cfg)
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tok"))
	got, err := mr.Get("dashclient:auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestOpenCredentials_File(t *testing.T) {
	cfg := testConfig("http://api.test")
	cfg.Credentials = config.CredentialsConfig{Store: "file", Dir: t.TempDir()}

	store, closeFn, err := OpenCredentials(cfg)
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tok"))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	app, err := NewApp(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
