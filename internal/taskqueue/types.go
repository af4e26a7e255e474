package taskqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bizrank/review-service/internal/types"
)

const (
	// DefaultMaxRetries bounds attempts per task
	DefaultMaxRetries = 3
	// DefaultRetention is how long finished tasks are kept
	DefaultRetention = 7 * 24 * time.Hour
	// DefaultStuckTimeout fails tasks processing for longer than this
	DefaultStuckTimeout = 5 * time.Minute
	// StuckError is the lastError of swept tasks
	StuckError = "stuck"
)

// Store persists processing queue items. Implementations apply every
// transition as a single-row atomic update.
type Store interface {
	// EnqueueTask inserts task unless a pending or retrying task exists for
	// the same (business, type); it returns the id of the stored task and
	// whether a row was created.
	EnqueueTask(ctx context.Context, task types.Task) (string, bool, error)
	// ClaimNextTask moves the highest-priority, oldest pending or retrying
	// task of taskType (any type when empty) to processing and increments
	// its attempts. Returns nil when nothing is claimable.
	ClaimNextTask(ctx context.Context, taskType types.TaskType, now time.Time) (*types.Task, error)
	CompleteTask(ctx context.Context, id string, result json.RawMessage, now time.Time) error
	// FailTask moves a processing task to retrying when retry is set and
	// attempts < maxRetries, else to failed, and returns the new status.
	FailTask(ctx context.Context, id, message string, retry bool, now time.Time) (types.TaskStatus, error)
	// CancelTask cancels a pending or retrying task.
	CancelTask(ctx context.Context, id string, now time.Time) error
	// FailStuckTasks fails tasks processing since before cutoff.
	FailStuckTasks(ctx context.Context, cutoff, now time.Time, message string) (int, error)
	// PurgeTasks deletes completed and cancelled tasks last updated before cutoff.
	PurgeTasks(ctx context.Context, before time.Time) (int, error)
	TaskStats(ctx context.Context, now time.Time) (*types.QueueStats, error)
	GetTask(ctx context.Context, id string) (*types.Task, error)
}

// EnqueueInput describes a task to schedule
type EnqueueInput struct {
	Type       types.TaskType
	BusinessID string
	Priority   int
	Metadata   any
	MaxRetries int
}

// EnqueueResult is the outcome of Enqueue
type EnqueueResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"` // false when an open task already existed
}
