// Package workers drains the processing queue lanes and runs the review
// sync job.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/http/ratelimit"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
)

// DefaultPollDelay is the pause between lane polls
const DefaultPollDelay = 2 * time.Second

// Handler processes one claimed task. The returned value is stored as the
// task result.
type Handler func(ctx context.Context, task types.Task) (any, error)

// WorkerConfig configures a Worker
type WorkerConfig struct {
	WorkerID  string
	TaskTypes []types.TaskType // lanes to poll; every registered lane when empty
	PollDelay time.Duration
	// TaskTimeout bounds one handler call; zero means no bound
	TaskTimeout time.Duration
}

// Worker polls processing queue lanes and dispatches tasks to handlers.
// Each lane takes at most one task per poll.
type Worker struct {
	queue    *taskqueue.Queue
	config   WorkerConfig
	handlers map[types.TaskType]Handler
	logger   zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a worker over queue
func New(queue *taskqueue.Queue, config WorkerConfig, logger *zerolog.Logger) *Worker {
	if config.PollDelay <= 0 {
		config.PollDelay = DefaultPollDelay
	}
	if config.WorkerID == "" {
		config.WorkerID = "worker"
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "worker").Str("worker_id", config.WorkerID).Logger()
	}
	return &Worker{
		queue:    queue,
		config:   config,
		handlers: make(map[types.TaskType]Handler),
		logger:   l,
		stopChan: make(chan struct{}),
	}
}

// RegisterHandler binds handler to a lane
func (w *Worker) RegisterHandler(taskType types.TaskType, handler Handler) {
	w.handlers[taskType] = handler
}

func (w *Worker) lanes() []types.TaskType {
	if len(w.config.TaskTypes) > 0 {
		return w.config.TaskTypes
	}
	var lanes []types.TaskType
	for _, t := range types.AllTaskTypes {
		if _, ok := w.handlers[t]; ok {
			lanes = append(lanes, t)
		}
	}
	return lanes
}

// Start launches one polling goroutine per lane
func (w *Worker) Start(ctx context.Context) {
	lanes := w.lanes()
	names := make([]string, len(lanes))
	for i, l := range lanes {
		names[i] = string(l)
	}
	w.logger.Info().Strs("task_types", names).Dur("poll_delay", w.config.PollDelay).Msg("Starting worker")

	for _, lane := range lanes {
		w.wg.Add(1)
		go w.laneLoop(ctx, lane)
	}
}

// Stop signals every lane and waits for in-flight tasks
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.logger.Info().Msg("Worker stopping, waiting for in-flight tasks")
	w.wg.Wait()
	w.logger.Info().Msg("Worker stopped")
}

func (w *Worker) laneLoop(ctx context.Context, lane types.TaskType) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if _, err := w.ProcessNext(ctx, lane); err != nil {
				w.logger.Error().Err(err).Str("task_type", string(lane)).Msg("Lane poll failed")
			}
		}
	}
}

// ProcessOnce polls every lane once and reports how many tasks ran
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	var (
		ran  int
		errs []error
	)
	for _, lane := range w.lanes() {
		ok, err := w.ProcessNext(ctx, lane)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			ran++
		}
	}
	return ran, errors.Join(errs...)
}

// ProcessNext claims and runs at most one task of taskType. It reports
// whether a task was claimed. Handler failures are recorded on the task
// and not returned.
func (w *Worker) ProcessNext(ctx context.Context, taskType types.TaskType) (bool, error) {
	task, err := w.queue.GetNext(ctx, taskType)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s task: %w", taskType, err)
	}
	if task == nil {
		return false, nil
	}
	w.process(ctx, *task)
	return true, nil
}

func (w *Worker) process(ctx context.Context, task types.Task) {
	log := w.logger.With().
		Str("task_id", task.ID).
		Str("task_type", string(task.Type)).
		Str("business_id", task.BusinessID).
		Logger()

	handler, ok := w.handlers[task.Type]
	if !ok {
		log.Warn().Msg("No handler for task type")
		if _, err := w.queue.Fail(ctx, task.ID, errors.New("no handler registered"), false); err != nil {
			log.Error().Err(err).Msg("Failed to record task failure")
		}
		return
	}

	hctx := ctx
	if w.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, w.config.TaskTimeout)
		defer cancel()
	}

	log.Debug().Int("attempt", task.Attempts).Msg("Processing task")
	start := time.Now()
	result, herr := handler(hctx, task)
	if herr != nil {
		retry := !IsPermanent(herr)
		status, err := w.queue.Fail(ctx, task.ID, herr, retry)
		if err != nil {
			log.Error().Err(err).Msg("Failed to record task failure")
			return
		}
		log.Error().Err(herr).Str("status", string(status)).Msg("Task failed")
		return
	}

	if err := w.queue.Complete(ctx, task.ID, result); err != nil {
		log.Error().Err(err).Msg("Failed to mark task as completed")
		return
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Task completed")
}

// IsPermanent reports whether err must not be retried
func IsPermanent(err error) bool {
	return errors.Is(err, ratelimit.ErrPermanent) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, ErrInvalidTask)
}
