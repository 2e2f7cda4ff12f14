package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/dashclient/internal/core/config"
	redisclient "github.com/vietddude/dashclient/internal/infra/redis"
	"github.com/vietddude/dashclient/internal/infra/storage"
	"github.com/vietddude/dashclient/internal/infra/storage/file"
	"github.com/vietddude/dashclient/internal/infra/storage/memory"
	"github.com/vietddude/dashclient/internal/infra/storage/postgres"
	"github.com/vietddude/dashclient/internal/infra/transport"
	"github.com/vietddude/dashclient/internal/pipeline/classifier"
	"github.com/vietddude/dashclient/internal/pipeline/connectivity"
	"github.com/vietddude/dashclient/internal/pipeline/dispatcher"
	"github.com/vietddude/dashclient/internal/pipeline/health"
	"github.com/vietddude/dashclient/internal/pipeline/recovery"
)

// App wires the request pipeline from configuration.
type App struct {
	cfg *config.AppConfig
	log *slog.Logger

	Dispatcher  *dispatcher.Dispatcher
	Classifier  *classifier.Classifier
	Monitor     *connectivity.Monitor
	Transport   *transport.HTTPTransport
	Errors      storage.ErrorStore
	Credentials storage.CredentialStore
	Registry    *recovery.Registry

	server  *health.Server
	db      *postgres.DB
	closers []func() error
}

// NewApp builds every component. Stores and sinks are picked by config.
func NewApp(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log, Errors: memory.NewErrorStore()}

	creds, closeCreds, err := OpenCredentials(cfg)
	if err != nil {
		return nil, err
	}
	a.Credentials = creds
	a.closers = append(a.closers, closeCreds)

	support, err := a.supportSink(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Transport, err = transport.NewHTTPTransport(cfg.Client.BaseEndpoint, cfg.Client.Timeout)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.Transport.Close)

	a.Monitor = connectivity.New(connectivity.Config{
		ProbeURL: strings.TrimRight(cfg.Client.BaseEndpoint, "/") + cfg.Connectivity.HealthPath,
		Interval: cfg.Connectivity.ProbeInterval,
		Timeout:  cfg.Connectivity.ProbeTimeout,
	}, log)

	a.Registry = recovery.NewRegistry(recovery.Deps{
		Credentials: creds,
		Support:     support,
		LoginPath:   cfg.Client.LoginPath,
		Logger:      log,
	})
	a.Classifier = classifier.New(a.Errors, a.Registry, a.Monitor, log)
	a.Dispatcher = dispatcher.New(cfg.Client, a.Transport, dispatcher.Deps{
		Credentials:  creds,
		Errors:       a.Errors,
		Connectivity: a.Monitor,
		Registry:     a.Registry,
		Classifier:   a.Classifier,
		Logger:       log,
	})
	a.server = health.NewServer(a.Dispatcher, a.Errors, a.Transport.Monitor, cfg.Server.Port, log)

	log.Info("Pipeline initialized",
		"endpoint", cfg.Client.BaseEndpoint,
		"credentials", cfg.Credentials.Store,
		"support", cfg.Support.Sink,
		"offline_queue", cfg.Client.EnableOfflineQueue,
	)
	return a, nil
}

// OpenCredentials opens the configured credential store and its closer.
func OpenCredentials(cfg *config.AppConfig) (storage.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Credentials.Store {
	case "file":
		store, err := file.NewCredentialStore(cfg.Credentials.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case "redis":
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
		return redisclient.NewCredentialStore(client), client.Close, nil
	default:
		return memory.NewCredentialStore(""), noop, nil
	}
}

func (a *App) supportSink(ctx context.Context) (recovery.SupportSink, error) {
	if a.cfg.Support.Sink != "postgres" {
		return recovery.NewMailtoSink(a.cfg.Support.Email, a.log), nil
	}

	db, err := postgres.NewDB(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}
	a.log.Info("Using PostgreSQL support sink")
	return recovery.NewRepositorySink(postgres.NewSupportTicketRepo(db), a.log), nil
}

// Run serves diagnostics and probes connectivity until ctx ends.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Monitor.Run(ctx)
	})
	g.Go(func() error {
		return a.server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Close tears the pipeline down. Queued requests fail with "dispatcher
// closed".
func (a *App) Close() error {
	var errs []error
	if a.Dispatcher != nil {
		errs = append(errs, a.Dispatcher.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
