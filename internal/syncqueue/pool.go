package syncqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bizrank/review-service/internal/types"
)

// DefaultJobTimeout bounds one sync job
const DefaultJobTimeout = 5 * time.Minute

// Job performs the sync of one claimed item
type Job func(ctx context.Context, item types.SyncItem) (*types.SyncResult, error)

// RunSummary reports what one RunOnce pass did
type RunSummary struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Pool runs sync jobs with bounded concurrency. The store enforces the
// global ceiling across processes and the semaphore enforces it in-process.
type Pool struct {
	queue      *Queue
	sem        *semaphore.Weighted
	size       int
	jobTimeout time.Duration
	job        Job
	logger     zerolog.Logger
}

// NewPool creates a pool of size workers (queue ceiling when <= 0)
func NewPool(queue *Queue, size int, jobTimeout time.Duration, job Job, logger *zerolog.Logger) *Pool {
	if size <= 0 || size > queue.Ceiling() {
		size = queue.Ceiling()
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sync_pool").Logger()
	}
	return &Pool{
		queue:      queue,
		sem:        semaphore.NewWeighted(int64(size)),
		size:       size,
		jobTimeout: jobTimeout,
		job:        job,
		logger:     l,
	}
}

// RunOnce claims as many items as there are free slots and runs them to
// completion. Every claimed item ends completed or failed.
func (p *Pool) RunOnce(ctx context.Context) (*RunSummary, error) {
	items, err := p.queue.DequeueNext(ctx, p.size)
	if err != nil {
		return nil, err
	}
	summary := &RunSummary{Claimed: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	outcomes := make([]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		if err := p.sem.Acquire(ctx, 1); err != nil {
			// Claimed but never started: release it through the failure path
			p.finish(context.WithoutCancel(ctx), item, nil, fmt.Errorf("worker slot unavailable: %w", err))
			continue
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			outcomes[i] = p.runOne(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range outcomes {
		if ok {
			summary.Completed++
		}
	}
	summary.Failed = summary.Claimed - summary.Completed

	p.logger.Info().
		Int("claimed", summary.Claimed).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Msg("Sync pool pass finished")
	return summary, nil
}

// Run drains the queue every interval until ctx is cancelled
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error().Err(err).Msg("Sync pool pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pool) runOne(ctx context.Context, item types.SyncItem) (ok bool) {
	start := time.Now()
	syncInFlight.Inc()
	defer syncInFlight.Dec()

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	var (
		result *types.SyncResult
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sync job panicked: %v", r)
			}
		}()
		result, err = p.job(jobCtx, item)
	}()

	syncDuration.Observe(time.Since(start).Seconds())
	// Record the outcome even when the job context expired
	return p.finish(context.WithoutCancel(ctx), item, result, err)
}

func (p *Pool) finish(ctx context.Context, item types.SyncItem, result *types.SyncResult, err error) bool {
	log := p.logger.With().Str("item_id", item.ID).Str("business_id", item.BusinessID).Logger()

	if err != nil {
		syncJobs.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("Review sync failed")
		if markErr := p.queue.MarkFailed(ctx, item, err); markErr != nil {
			log.Error().Err(markErr).Msg("Failed to mark sync item failed")
		}
		return false
	}

	if result == nil {
		result = &types.SyncResult{}
	}
	syncJobs.WithLabelValues("completed").Inc()
	if markErr := p.queue.MarkCompleted(ctx, item, *result); markErr != nil {
		log.Error().Err(markErr).Msg("Failed to mark sync item completed")
		return false
	}
	log.Info().
		Int("fetched", result.Fetched).
		Int("created", result.Created).
		Int("duplicates", result.Duplicates).
		Msg("Review sync completed")
	return true
}
