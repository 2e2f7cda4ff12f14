package dispatcher

import (
	"context"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/pipeline/queue"
)

func (d *Dispatcher) shouldQueue() bool {
	return d.cfg.EnableOfflineQueue && !d.connectivity.IsOnline()
}

// enqueueAndWait parks req in the offline queue and blocks until it is
// replayed, expires, is cleared or the caller gives up.
func (d *Dispatcher) enqueueAndWait(ctx context.Context, req domain.Request) domain.Result {
	item, done := d.queue.Enqueue(req)

	// The link may have come back between the check and the enqueue.
	if d.connectivity.IsOnline() {
		d.startDrain()
	}

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		if d.queue.Cancel(item.ID, ctx.Err()) {
			d.log.Info("Caller abandoned queued request", "request_id", item.ID, "path", req.Path)
		}
		return d.fail(ctx.Err(), req)
	}
}

func (d *Dispatcher) onConnectivity(online bool) {
	if online {
		d.startDrain()
	}
}

func (d *Dispatcher) startDrain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isClosed() || d.queue.Len() == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.queue.Drain(d.runCtx, d.replay)
	}()
}

// replay makes a single attempt for a queued item.
func (d *Dispatcher) replay(ctx context.Context, item *domain.QueuedRequest) (domain.Result, queue.Disposition) {
	state := &domain.RetryState{RequestID: item.ID, RetryCount: item.RetryCount}

	resp, err := d.attempt(ctx, item.Request, state)
	if err == nil {
		return d.success(resp, item.Request), queue.Resolve
	}
	if ctx.Err() != nil {
		return domain.Result{}, queue.Halt
	}

	errType, f := d.classifier.Categorize(err)
	switch {
	case errType == domain.ErrorTypeAuthentication:
		return d.authenticationFailure(ctx, err, item.Request), queue.Resolve
	case errType == domain.ErrorTypeNetwork && f.StatusCode == 0 && !d.connectivity.IsOnline():
		return domain.Result{}, queue.Halt
	case Retryable(errType, f) && item.RetryCount < d.cfg.MaxRetries:
		d.log.Warn("Replayed request failed, re-queueing",
			"request_id", item.ID, "path", item.Request.Path, "retry", item.RetryCount+1,
			"retry_after", f.RetryAfter, "error", err)
		// The server's Retry-After holds back the whole drain, not only this item.
		if f.RetryAfter > 0 {
			if werr := d.wait(ctx, f.RetryAfter); werr != nil {
				return domain.Result{}, queue.Halt
			}
		}
		return domain.Result{}, queue.Requeue
	}
	return d.fail(err, item.Request), queue.Resolve
}
