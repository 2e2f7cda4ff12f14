// Package queue holds requests issued while the client is offline and replays
// them in order once the link returns.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/pipeline/classifier"
	"github.com/vietddude/dashclient/internal/pipeline/metrics"
)

// Disposition is what the drain does with an item after processing it.
type Disposition int

const (
	// Resolve delivers the result to the waiting caller.
	Resolve Disposition = iota
	// Requeue puts the item back at the front and moves on.
	Requeue
	// Halt puts the item back at the front and stops the drain.
	Halt
)

func (d Disposition) String() string {
	switch d {
	case Resolve:
		return "resolve"
	case Requeue:
		return "requeue"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// Processor replays one queued request.
type Processor func(ctx context.Context, item *domain.QueuedRequest) (domain.Result, Disposition)

// Config configures the queue.
type Config struct {
	MaxSize int
	Timeout time.Duration

	// Interval is the minimum spacing between two drained items.
	Interval time.Duration
}

type entry struct {
	item   *domain.QueuedRequest
	result chan domain.Result
	timer  *time.Timer
	once   sync.Once
}

func (e *entry) resolve(r domain.Result) {
	e.once.Do(func() {
		e.result <- r
		close(e.result)
	})
}

// Queue is a bounded FIFO of pending requests. Every item has a live expiry
// timer while it sits in the queue.
type Queue struct {
	cfg        Config
	classifier *classifier.Classifier
	limiter    *rate.Limiter
	log        *slog.Logger
	now        func() time.Time
	passDone   func() // test hook, runs after each drain pass

	mu       sync.Mutex
	items    []*entry
	draining bool
	closed   bool
}

// New creates a queue. Terminal queue failures are classified with cls.
func New(cfg Config, cls *classifier.Classifier, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	if cls == nil {
		cls = classifier.New(nil, nil, nil, log)
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Queue{
		cfg:        cfg,
		classifier: cls,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log,
		now:        time.Now,
	}
}

// Enqueue adds a request. When the queue is full (or closed) the returned
// channel is already resolved with the terminal error.
func (q *Queue) Enqueue(req domain.Request) (*domain.QueuedRequest, <-chan domain.Result) {
	now := q.now()
	id := req.ID
	if id == "" {
		id = ulid.Make().String()
	}
	e := &entry{
		item: &domain.QueuedRequest{
			ID:         id,
			Request:    req,
			EnqueuedAt: now,
			Deadline:   now.Add(q.cfg.Timeout),
		},
		result: make(chan domain.Result, 1),
	}

	q.mu.Lock()
	switch {
	case q.closed:
		q.mu.Unlock()
		e.resolve(q.fail(e.item, domain.ErrDispatcherClosed))
		return e.item, e.result
	case len(q.items) >= q.cfg.MaxSize:
		size := len(q.items)
		q.mu.Unlock()
		q.log.Warn("Offline queue full, rejecting request",
			"request_id", id, "path", req.Path, "size", size)
		metrics.QueueOutcomes.WithLabelValues("rejected").Inc()
		e.resolve(q.fail(e.item, domain.ErrQueueFull))
		return e.item, e.result
	}

	e.timer = time.AfterFunc(q.cfg.Timeout, func() { q.expire(e) })
	q.items = append(q.items, e)
	size := len(q.items)
	q.mu.Unlock()

	metrics.QueueLength.Set(float64(size))
	metrics.QueueOutcomes.WithLabelValues("enqueued").Inc()
	q.log.Info("Request queued while offline",
		"request_id", id, "method", req.Method, "path", req.Path, "size", size)
	return e.item, e.result
}

// expire drops an item whose deadline passed, wherever it sits.
func (q *Queue) expire(e *entry) {
	if !q.remove(e) {
		return
	}
	metrics.QueueOutcomes.WithLabelValues("expired").Inc()
	q.log.Warn("Queued request expired", "request_id", e.item.ID, "path", e.item.Request.Path)
	e.resolve(q.fail(e.item, domain.ErrQueueTimeout))
}

// remove takes e out of the queue. It reports false if e was already gone.
func (q *Queue) remove(e *entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.items {
		if existing == e {
			q.items = append(q.items[:i], q.items[i+1:]...)
			metrics.QueueLength.Set(float64(len(q.items)))
			return true
		}
	}
	return false
}

func (q *Queue) pop() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	e.timer.Stop()
	metrics.QueueLength.Set(float64(len(q.items)))
	return e
}

// pushFront re-inserts e at the head keeping its original deadline.
func (q *Queue) pushFront(e *entry) {
	remaining := e.item.Deadline.Sub(q.now())

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		e.resolve(q.fail(e.item, domain.ErrDispatcherClosed))
		return
	}
	if remaining <= 0 {
		q.mu.Unlock()
		metrics.QueueOutcomes.WithLabelValues("expired").Inc()
		e.resolve(q.fail(e.item, domain.ErrQueueTimeout))
		return
	}
	e.timer = time.AfterFunc(remaining, func() { q.expire(e) })
	q.items = append([]*entry{e}, q.items...)
	size := len(q.items)
	q.mu.Unlock()

	metrics.QueueLength.Set(float64(size))
}

// Drain replays queued items in FIFO order through process. Concurrent calls
// collapse into the drain already in progress. Drain returns when the queue
// is empty, process halts or ctx ends.
func (q *Queue) Drain(ctx context.Context, process Processor) {
	q.mu.Lock()
	if q.draining || q.closed {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	for {
		halted := q.drain(ctx, process)
		if q.passDone != nil {
			q.passDone()
		}

		// An item enqueued after the last pop found this drain still running
		// and was collapsed into it, so it has to be picked up here.
		q.mu.Lock()
		again := !halted && !q.closed && ctx.Err() == nil && len(q.items) > 0
		q.draining = again
		q.mu.Unlock()
		if !again {
			return
		}
	}
}

// drain runs one pass over the queue. It reports whether process halted.
func (q *Queue) drain(ctx context.Context, process Processor) (halted bool) {
	drained := 0
	defer func() {
		if drained > 0 {
			q.log.Info("Offline queue drained", "processed", drained)
		}
	}()

	for {
		if ctx.Err() != nil || q.Len() == 0 {
			return false
		}
		if err := q.limiter.Wait(ctx); err != nil {
			return false
		}
		e := q.pop()
		if e == nil {
			return false
		}

		result, disposition := process(ctx, e.item)
		switch disposition {
		case Requeue:
			e.item.RetryCount++
			metrics.QueueOutcomes.WithLabelValues("requeued").Inc()
			q.pushFront(e)
		case Halt:
			q.pushFront(e)
			q.log.Info("Drain halted", "remaining", q.Len())
			return true
		default:
			if result.Success {
				metrics.QueueOutcomes.WithLabelValues("drained").Inc()
			} else {
				metrics.QueueOutcomes.WithLabelValues("failed").Inc()
			}
			drained++
			e.resolve(result)
		}
	}
}

// Cancel drops a queued item by id and resolves it with reason. It reports
// false when the item already left the queue.
func (q *Queue) Cancel(id string, reason error) bool {
	q.mu.Lock()
	var found *entry
	for i, e := range q.items {
		if e.item.ID == id {
			found = e
			q.items = append(q.items[:i], q.items[i+1:]...)
			e.timer.Stop()
			break
		}
	}
	size := len(q.items)
	q.mu.Unlock()

	if found == nil {
		return false
	}
	metrics.QueueLength.Set(float64(size))
	metrics.QueueOutcomes.WithLabelValues("cancelled").Inc()
	found.resolve(q.fail(found.item, reason))
	return true
}

// Clear resolves every queued item with the "queue cleared" error.
func (q *Queue) Clear() {
	q.flush(domain.ErrQueueCleared, "cleared")
}

// Close rejects all queued and future items with "dispatcher closed".
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.flush(domain.ErrDispatcherClosed, "closed")
}

func (q *Queue) flush(reason error, outcome string) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	for _, e := range items {
		e.timer.Stop()
	}
	q.mu.Unlock()

	metrics.QueueLength.Set(0)
	if len(items) == 0 {
		return
	}
	metrics.QueueOutcomes.WithLabelValues(outcome).Add(float64(len(items)))
	q.log.Info("Offline queue flushed", "reason", reason, "count", len(items))
	for _, e := range items {
		e.resolve(q.fail(e.item, reason))
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Status returns the queue view; IsOnline is left to the caller.
func (q *Queue) Status() domain.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return domain.QueueStatus{
		QueueLength:       len(q.items),
		IsProcessingQueue: q.draining,
		MaxQueueSize:      q.cfg.MaxSize,
	}
}

// IsDraining reports whether a drain is in progress.
func (q *Queue) IsDraining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

func (q *Queue) fail(item *domain.QueuedRequest, reason error) domain.Result {
	perr := q.classifier.Classify(reason,
		classifier.WithRequest(item.Request),
		classifier.WithContext(contextLabel(item.Request)),
	)
	return domain.Failed(perr)
}

func contextLabel(req domain.Request) string {
	if req.Label != "" {
		return req.Label
	}
	return "offline_queue"
}
