// Package dispatcher sends requests to the remote API with retries, offline
// queueing and error classification. Callers always get a domain.Result; raw
// failures never escape.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vietddude/dashclient/internal/core/config"
	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/storage"
	"github.com/vietddude/dashclient/internal/infra/storage/memory"
	"github.com/vietddude/dashclient/internal/infra/transport"
	"github.com/vietddude/dashclient/internal/pipeline/classifier"
	"github.com/vietddude/dashclient/internal/pipeline/connectivity"
	"github.com/vietddude/dashclient/internal/pipeline/metrics"
	"github.com/vietddude/dashclient/internal/pipeline/queue"
	"github.com/vietddude/dashclient/internal/pipeline/recovery"
)

// Connectivity is the online/offline signal the dispatcher follows.
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Deps are the collaborators of a Dispatcher. Nil fields get in-memory or
// logging defaults.
type Deps struct {
	Credentials  storage.CredentialStore
	Errors       storage.ErrorStore
	Connectivity Connectivity
	Registry     *recovery.Registry
	Classifier   *classifier.Classifier
	Logger       *slog.Logger
}

// Dispatcher is the single entry point for API calls.
type Dispatcher struct {
	cfg          config.ClientConfig
	transport    transport.Transport
	credentials  storage.CredentialStore
	connectivity Connectivity
	classifier   *classifier.Classifier
	queue        *queue.Queue
	log          *slog.Logger

	// runCtx is cancelled by Close and bounds drains and in-flight attempts.
	runCtx    context.Context
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
	unsub     func()

	// mu orders drain start-up against Close.
	mu sync.Mutex
	wg sync.WaitGroup
}

// New creates a dispatcher and subscribes it to connectivity transitions.
func New(cfg config.ClientConfig, tr transport.Transport, deps Deps) *Dispatcher {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Credentials == nil {
		deps.Credentials = memory.NewCredentialStore("")
	}
	if deps.Errors == nil {
		deps.Errors = memory.NewErrorStore()
	}
	if deps.Connectivity == nil {
		deps.Connectivity = connectivity.New(connectivity.Config{}, log)
	}
	if deps.Registry == nil {
		deps.Registry = recovery.NewRegistry(recovery.Deps{
			Credentials: deps.Credentials,
			LoginPath:   cfg.LoginPath,
			Logger:      log,
		})
	}
	if deps.Classifier == nil {
		deps.Classifier = classifier.New(deps.Errors, deps.Registry, deps.Connectivity, log)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:          cfg,
		transport:    tr,
		credentials:  deps.Credentials,
		connectivity: deps.Connectivity,
		classifier:   deps.Classifier,
		queue: queue.New(queue.Config{
			MaxSize:  cfg.MaxQueueSize,
			Timeout:  cfg.QueueTimeout,
			Interval: cfg.DrainInterval,
		}, deps.Classifier, log),
		log:    log,
		runCtx: runCtx,
		cancel: cancel,
		closed: make(chan struct{}),
	}
	d.unsub = d.connectivity.Subscribe(d.onConnectivity)
	return d
}

// Send issues req and returns its outcome. It never panics and never returns
// a raw error: failures are classified into Result.Error.
func (d *Dispatcher) Send(ctx context.Context, req domain.Request) (result domain.Result) {
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
		req.Method = method
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Dispatcher panicked", "request_id", req.ID, "panic", r)
			result = d.fail(fmt.Errorf("dispatch %s %s: panic: %v", req.Method, req.Path, r), req)
		}
		outcome := "success"
		if !result.Success {
			outcome = "failure"
		}
		metrics.RequestsTotal.WithLabelValues(method, outcome).Inc()
	}()

	if d.isClosed() {
		return d.fail(domain.ErrDispatcherClosed, req)
	}

	state := &domain.RetryState{RequestID: req.ID}
	return d.run(ctx, req, state)
}

// Retry re-sends req through the budgeted path with a fresh retry budget.
func (d *Dispatcher) Retry(ctx context.Context, req domain.Request) domain.Result {
	req.ID = ""
	return d.Send(ctx, req)
}

// QueueStatus returns the offline queue view.
func (d *Dispatcher) QueueStatus() domain.QueueStatus {
	st := d.queue.Status()
	st.IsOnline = d.connectivity.IsOnline()
	return st
}

// Close cancels pending waits, rejects queued requests and stops following
// connectivity. It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		close(d.closed)
		d.mu.Unlock()

		d.cancel()
		if d.unsub != nil {
			d.unsub()
		}
		d.queue.Close()
		d.wg.Wait()
		d.log.Info("Dispatcher closed")
	})
	return nil
}

func (d *Dispatcher) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// run drives one logical request until it succeeds, is queued or fails
// terminally.
func (d *Dispatcher) run(ctx context.Context, req domain.Request, state *domain.RetryState) domain.Result {
	for {
		if d.shouldQueue() {
			return d.enqueueAndWait(ctx, req)
		}

		resp, err := d.attempt(ctx, req, state)
		if err == nil {
			return d.success(resp, req)
		}

		if ctxErr := d.abandoned(ctx); ctxErr != nil {
			return d.fail(ctxErr, req)
		}

		errType, f := d.classifier.Categorize(err)
		switch {
		case errType == domain.ErrorTypeAuthentication:
			return d.authenticationFailure(ctx, err, req)

		case f.StatusCode == http.StatusTooManyRequests && f.RetryAfter > 0 && !state.RateLimitRetried:
			state.RateLimitRetried = true
			d.log.Warn("Rate limited, waiting before re-attempt",
				"request_id", req.ID, "path", req.Path, "retry_after", f.RetryAfter)
			metrics.RetriesTotal.WithLabelValues("rate_limit").Inc()
			if werr := d.wait(ctx, f.RetryAfter); werr != nil {
				return d.fail(werr, req)
			}
			continue

		case errType == domain.ErrorTypeNetwork && f.StatusCode == 0 && d.shouldQueue():
			d.log.Warn("Link went offline during request, queueing",
				"request_id", req.ID, "path", req.Path)
			return d.enqueueAndWait(ctx, req)

		case Retryable(errType, f) && state.RetryCount < d.cfg.MaxRetries:
			delay := d.Backoff(state.RetryCount)
			if f.RetryAfter > delay {
				delay = f.RetryAfter
			}
			d.log.Warn("Request failed, retrying",
				"request_id", req.ID,
				"path", req.Path,
				"type", errType,
				"retry", state.RetryCount+1,
				"max_retries", d.cfg.MaxRetries,
				"delay", delay,
				"error", err,
			)
			metrics.RetriesTotal.WithLabelValues("backoff").Inc()
			if werr := d.wait(ctx, delay); werr != nil {
				return d.fail(werr, req)
			}
			state.RetryCount++
			continue
		}

		return d.fail(err, req)
	}
}

// attempt issues exactly one transport call with the current credential.
func (d *Dispatcher) attempt(ctx context.Context, req domain.Request, state *domain.RetryState) (*transport.Response, error) {
	r := req.Clone()
	token, err := d.credentials.Get(ctx)
	switch {
	case err == nil:
		r.Headers.Set("Authorization", "Bearer "+token)
	case !errors.Is(err, storage.ErrNoCredential):
		d.log.Warn("Failed to read credential", "error", err)
	}

	var (
		actx   context.Context
		cancel context.CancelFunc
	)
	if d.cfg.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
	} else {
		actx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	stop := context.AfterFunc(d.runCtx, cancel)
	defer stop()

	start := time.Now()
	state.LastAttemptAt = start
	resp, err := d.transport.Do(actx, r)
	metrics.AttemptLatency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AttemptsTotal.WithLabelValues(r.Method, "failure").Inc()
		d.log.Debug("Attempt failed", "request_id", req.ID, "path", req.Path, "retry", state.RetryCount, "error", err)
		return nil, err
	}
	metrics.AttemptsTotal.WithLabelValues(r.Method, "success").Inc()
	return resp, nil
}

// abandoned reports why the caller or the dispatcher stopped waiting.
func (d *Dispatcher) abandoned(ctx context.Context) error {
	if d.isClosed() {
		return domain.ErrDispatcherClosed
	}
	return ctx.Err()
}

// authenticationFailure runs the re-authenticate effect once and returns the
// terminal error.
func (d *Dispatcher) authenticationFailure(ctx context.Context, err error, req domain.Request) domain.Result {
	perr := d.classify(err, req)
	if action, ok := perr.Action(domain.RecoveryReAuthenticate); ok {
		if aerr := action.Execute(ctx); aerr != nil {
			d.log.Warn("Re-authentication effect failed", "error_id", perr.ID, "error", aerr)
		}
	}
	return domain.Failed(perr)
}

func (d *Dispatcher) classify(raw any, req domain.Request) *domain.ProcessedError {
	retry := func(ctx context.Context) error {
		r := d.Retry(ctx, req)
		if !r.Success {
			return r.Processed
		}
		return nil
	}
	return d.classifier.Classify(raw,
		classifier.WithRequest(req),
		classifier.WithRetry(retry),
	)
}

func (d *Dispatcher) fail(raw any, req domain.Request) domain.Result {
	return domain.Failed(d.classify(raw, req))
}
