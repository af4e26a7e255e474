package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/pkg/cuid2"
	"github.com/bizrank/review-service/internal/types"
)

// Queue is the generic processing queue for analysis, ranking,
// achievement and batch tasks
type Queue struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a processing queue over store
func New(store Store, logger *zerolog.Logger) *Queue {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "taskqueue").Logger()
	}
	return &Queue{store: store, now: time.Now, logger: l}
}

// WithClock replaces the time source, used by tests
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Enqueue schedules a task. An open (pending or retrying) task for the same
// business and type suppresses the insert and its id is returned.
func (q *Queue) Enqueue(ctx context.Context, input EnqueueInput) (*EnqueueResult, error) {
	if !input.Type.Valid() {
		return nil, fmt.Errorf("unknown task type %q", input.Type)
	}

	var metadata json.RawMessage
	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task metadata: %w", err)
		}
		metadata = data
	}

	maxRetries := DefaultMaxRetries
	if input.MaxRetries > 0 {
		maxRetries = input.MaxRetries
	}

	now := q.now().UTC()
	id, created, err := q.store.EnqueueTask(ctx, types.Task{
		ID:         cuid2.New("tsk"),
		Type:       input.Type,
		BusinessID: input.BusinessID,
		Status:     types.TaskPending,
		Priority:   input.Priority,
		MaxRetries: maxRetries,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s task: %w", input.Type, err)
	}

	q.logger.Debug().
		Str("task_id", id).
		Str("type", string(input.Type)).
		Str("business_id", input.BusinessID).
		Bool("created", created).
		Msg("Task enqueued")

	return &EnqueueResult{ID: id, Created: created}, nil
}

// GetNext claims the next task of taskType, or of any type when empty.
// Returns nil when the lane is empty.
func (q *Queue) GetNext(ctx context.Context, taskType types.TaskType) (*types.Task, error) {
	task, err := q.store.ClaimNextTask(ctx, taskType, q.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	return task, nil
}

// Complete marks a task completed with an optional result
func (q *Queue) Complete(ctx context.Context, id string, result any) error {
	var data json.RawMessage
	if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode task result: %w", err)
		}
		data = encoded
	}
	return q.store.CompleteTask(ctx, id, data, q.now().UTC())
}

// Fail records a task failure. A retryable failure with attempts left goes
// to retrying, anything else to failed.
func (q *Queue) Fail(ctx context.Context, id string, cause error, retry bool) (types.TaskStatus, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	status, err := q.store.FailTask(ctx, id, msg, retry, q.now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to record task failure: %w", err)
	}

	q.logger.Warn().
		Str("task_id", id).
		Str("status", string(status)).
		Str("error", msg).
		Msg("Task failed")
	return status, nil
}

// Cancel cancels a pending or retrying task
func (q *Queue) Cancel(ctx context.Context, id string) error {
	return q.store.CancelTask(ctx, id, q.now().UTC())
}

// SweepStuck fails tasks processing for longer than timeout. A swept task
// is never claimed again; later work for its business is a new task.
func (q *Queue) SweepStuck(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = DefaultStuckTimeout
	}
	now := q.now().UTC()
	n, err := q.store.FailStuckTasks(ctx, now.Add(-timeout), now, StuckError)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stuck tasks: %w", err)
	}
	if n > 0 {
		q.logger.Warn().Int("count", n).Dur("timeout", timeout).Msg("Failed stuck tasks")
	}
	return n, nil
}

// Cleanup purges completed and cancelled tasks older than retention
func (q *Queue) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	n, err := q.store.PurgeTasks(ctx, q.now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge tasks: %w", err)
	}
	return n, nil
}

// Stats returns queue aggregates
func (q *Queue) Stats(ctx context.Context) (*types.QueueStats, error) {
	return q.store.TaskStats(ctx, q.now().UTC())
}

// Get returns one task
func (q *Queue) Get(ctx context.Context, id string) (*types.Task, error) {
	return q.store.GetTask(ctx, id)
}
