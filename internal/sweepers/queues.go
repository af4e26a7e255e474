package sweepers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is how often the sweeper runs
	DefaultInterval = time.Minute
	// DefaultStuckTimeout is how long an item may stay processing
	DefaultStuckTimeout = 5 * time.Minute
)

// StuckSweeper fails the items of one queue left processing past timeout
type StuckSweeper interface {
	SweepStuck(ctx context.Context, timeout time.Duration) (int, error)
}

// SweepResult counts what one pass recovered
type SweepResult struct {
	TasksFailed int `json:"tasksFailed"`
	SyncsFailed int `json:"syncsFailed"`
}

// QueueSweeper periodically recovers items left processing by crashed or
// hung workers in both queues
type QueueSweeper struct {
	tasks    StuckSweeper
	syncs    StuckSweeper
	timeout  time.Duration
	interval time.Duration
	logger   zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewQueueSweeper creates a sweeper. Either queue may be nil.
func NewQueueSweeper(tasks, syncs StuckSweeper, interval, timeout time.Duration, logger *zerolog.Logger) *QueueSweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultStuckTimeout
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "queue_sweeper").Logger()
	}
	return &QueueSweeper{
		tasks:    tasks,
		syncs:    syncs,
		timeout:  timeout,
		interval: interval,
		logger:   l,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep every interval until ctx is cancelled or Stop is
// called. It blocks.
func (s *QueueSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("timeout", s.timeout).
		Msg("Starting queue sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Queue sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Queue sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Queue sweep failed")
			}
		}
	}
}

// Stop signals the sweeper to stop
func (s *QueueSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Sweep runs one recovery pass over both queues. A failure in one queue
// does not stop the other.
func (s *QueueSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}
	var errs []error

	if s.tasks != nil {
		n, err := s.tasks.SweepStuck(ctx, s.timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to sweep stuck tasks: %w", err))
		}
		result.TasksFailed = n
	}
	if s.syncs != nil {
		n, err := s.syncs.SweepStuck(ctx, s.timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to sweep stuck syncs: %w", err))
		}
		result.SyncsFailed = n
	}

	if result.TasksFailed > 0 || result.SyncsFailed > 0 {
		s.logger.Info().
			Int("tasks_failed", result.TasksFailed).
			Int("syncs_failed", result.SyncsFailed).
			Msg("Recovered stuck queue items")
	}
	return result, errors.Join(errs...)
}
