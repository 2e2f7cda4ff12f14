package dispatcher

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/pipeline/classifier"
)

// Backoff returns the delay before retry number attempt (zero based):
// RetryDelay * RetryMultiplier^attempt, capped at MaxRetryDelay.
func (d *Dispatcher) Backoff(attempt int) time.Duration {
	return backoff(attempt, d.cfg.RetryDelay, d.cfg.RetryMultiplier, d.cfg.MaxRetryDelay)
}

func backoff(attempt int, initial time.Duration, multiple float64, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if multiple < 1 {
		multiple = 1
	}
	delay := float64(initial) * math.Pow(multiple, float64(attempt))
	if maxDelay > 0 && delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	return time.Duration(delay)
}

// Retryable reports whether a failure may be re-attempted. Only network
// failures, timeouts, 408, 423, 429 and 5xx qualify. Any other 4xx answer is
// terminal on first sight, even when its body or the link state reads as a
// network failure.
func Retryable(t domain.ErrorType, f classifier.RawFailure) bool {
	if f.Pipeline || f.IsCancelled {
		return false
	}
	if clientError(f.StatusCode) {
		return false
	}
	if t == domain.ErrorTypeNetwork || f.IsNetworkError || f.IsTimeout {
		return true
	}
	switch f.StatusCode {
	case http.StatusRequestTimeout, http.StatusLocked, http.StatusTooManyRequests:
		return true
	}
	return f.StatusCode >= 500
}

// wait sleeps for delay unless the caller gives up or the dispatcher closes.
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return d.abandoned(ctx)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.closed:
		return domain.ErrDispatcherClosed
	case <-timer.C:
		return nil
	}
}

// clientError reports a 4xx answer outside the retryable 408, 423 and 429.
// Such an answer is final whatever the body says or the link state is.
func clientError(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusLocked, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}
