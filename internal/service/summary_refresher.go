package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/pkg/jobs"
)

const allDepartmentsKey = "*"

type summaryBuilder interface {
	Refresh(ctx context.Context, deptID string) error
}

// SummaryRefresher rebuilds cached department summaries in the background
// after assignments change.
type SummaryRefresher struct {
	queue   *jobs.Queue
	metrics *MetricsService
}

// SummaryRefresherConfig tunes the refresher worker pool.
type SummaryRefresherConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Metrics    *MetricsService
	Logger     *zap.Logger
}

// NewSummaryRefresher builds a refresher around a summary service.
func NewSummaryRefresher(summaries *SummaryService, cfg SummaryRefresherConfig) *SummaryRefresher {
	return newSummaryRefresher(summaryBuilderFunc(func(ctx context.Context, deptID string) error {
		_, err := summaries.Refresh(ctx, deptID)
		return err
	}), cfg)
}

type summaryBuilderFunc func(ctx context.Context, deptID string) error

func (f summaryBuilderFunc) Refresh(ctx context.Context, deptID string) error { return f(ctx, deptID) }

func newSummaryRefresher(builder summaryBuilder, cfg SummaryRefresherConfig) *SummaryRefresher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := &SummaryRefresher{metrics: cfg.Metrics}
	r.queue = jobs.NewQueue("summary-refresh", func(ctx context.Context, key string) error {
		deptID := key
		if key == allDepartmentsKey {
			deptID = ""
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		err := builder.Refresh(ctx, deptID)
		r.metrics.RecordSummaryRefresh(err)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     cfg.Logger,
	})
	return r
}

// Start launches the workers.
func (r *SummaryRefresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	r.queue.Start(ctx)
}

// Stop waits for the workers to exit.
func (r *SummaryRefresher) Stop() {
	if r == nil {
		return
	}
	r.queue.Stop()
}

// Enqueue schedules a rebuild of each department and of the institution-wide summary.
func (r *SummaryRefresher) Enqueue(deptIDs ...string) {
	if r == nil {
		return
	}
	for _, dept := range deptIDs {
		if dept != "" {
			r.queue.Enqueue(dept)
		}
	}
	r.queue.Enqueue(allDepartmentsKey)
}
