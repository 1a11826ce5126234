package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes the work identified by key.
type Handler func(ctx context.Context, key string) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory keyed work queue. A key enqueued while it is still
// waiting is coalesced into the pending entry, so bursts of writes against
// the same key cost one run.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	keys    chan string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	pending map[string]struct{}
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		keys:       make(chan string, cfg.BufferSize),
		pending:    make(map[string]struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit. Pending keys are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue schedules key without blocking. It reports false when the queue is
// stopped or full; a key that is already waiting counts as accepted.
func (q *Queue) Enqueue(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return false
	}
	if _, waiting := q.pending[key]; waiting {
		return true
	}
	select {
	case q.keys <- key:
		q.pending[key] = struct{}{}
		return true
	default:
		q.logger.Warn("queue full, dropping key", zap.String("queue", q.name), zap.String("key", key))
		return false
	}
}

// Pending reports how many keys are waiting for a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case key := <-q.keys:
			q.mu.Lock()
			delete(q.pending, key)
			q.mu.Unlock()
			q.run(key)
		}
	}
}

func (q *Queue) run(key string) {
	for attempt := 0; ; attempt++ {
		err := q.handler(q.ctx, key)
		if err == nil {
			return
		}
		if attempt >= q.maxRetries {
			q.logger.Error("job exceeded retries", zap.String("queue", q.name), zap.String("key", key), zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying", zap.String("queue", q.name), zap.String("key", key), zap.Int("attempt", attempt+1), zap.Error(err))

		timer := time.NewTimer(q.retryDelay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
