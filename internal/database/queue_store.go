package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bizrank/review-service/internal/types"
)

// syncClaimLockKey serialises sync claims so the ceiling holds across replicas
const syncClaimLockKey = 7_315_020_114

const taskColumns = `id, task_type, business_id, status, priority, attempts, max_retries,
	metadata, result, last_error, created_at, started_at, completed_at, updated_at`

func scanTask(row pgx.Row) (*types.Task, error) {
	var (
		t                types.Task
		taskType, status string
		metadata, result []byte
	)
	err := row.Scan(&t.ID, &taskType, &t.BusinessID, &status, &t.Priority, &t.Attempts, &t.MaxRetries,
		&metadata, &result, &t.LastError, &t.CreatedAt, &t.StartedAt, &t.CompletedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		t.Metadata = json.RawMessage(metadata)
	}
	if len(result) > 0 {
		t.Result = json.RawMessage(result)
	}
	t.Type = types.TaskType(taskType)
	t.Status = types.TaskStatus(status)
	return &t, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// EnqueueTask inserts task unless an open task exists for (business, type).
// The partial unique index makes the check and insert a single statement; the
// loop covers the window where the conflicting row closes between statements.
func (s *Store) EnqueueTask(ctx context.Context, task types.Task) (string, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		var id string
		err := s.pool.QueryRow(ctx, `
			INSERT INTO processing_queue (
				id, task_type, business_id, status, priority, max_retries,
				metadata, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (business_id, task_type) WHERE status IN ('pending', 'retrying') DO NOTHING
			RETURNING id
		`, task.ID, string(task.Type), task.BusinessID, string(task.Status), task.Priority, task.MaxRetries,
			nullJSON(task.Metadata), task.CreatedAt, task.UpdatedAt).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("failed to insert task: %w", err)
		}

		err = s.pool.QueryRow(ctx, `
			SELECT id FROM processing_queue
			WHERE business_id = $1 AND task_type = $2 AND status IN ('pending', 'retrying')
		`, task.BusinessID, string(task.Type)).Scan(&id)
		if err == nil {
			return id, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("failed to load open task: %w", err)
		}
	}
	return "", false, fmt.Errorf("enqueue of %s task for %s kept conflicting", task.Type, task.BusinessID)
}

// ClaimNextTask claims the highest-priority, oldest open task
func (s *Store) ClaimNextTask(ctx context.Context, taskType types.TaskType, now time.Time) (*types.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE processing_queue SET
			status = 'processing',
			attempts = attempts + 1,
			started_at = $2,
			updated_at = $2
		WHERE id = (
			SELECT id FROM processing_queue
			WHERE status IN ('pending', 'retrying')
			  AND ($1 = '' OR task_type = $1)
			ORDER BY priority DESC, seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+taskColumns, string(taskType), now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	return t, nil
}

// transitionError explains why a guarded update touched no row
func (s *Store) transitionError(ctx context.Context, table, what, id string) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM `+table+` WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", what, id, err)
	}
	return fmt.Errorf("%s %s is %s: %w", what, id, status, types.ErrInvalidState)
}

// CompleteTask marks a processing task completed
func (s *Store) CompleteTask(ctx context.Context, id string, result json.RawMessage, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE processing_queue SET
			status = 'completed', result = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, nullJSON(result), now)
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, "processing_queue", "task", id)
	}
	return nil
}

// FailTask routes a processing task to retrying or failed
func (s *Store) FailTask(ctx context.Context, id, message string, retry bool, now time.Time) (types.TaskStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `
		UPDATE processing_queue SET
			status = CASE WHEN $3 AND attempts < max_retries THEN 'retrying' ELSE 'failed' END,
			completed_at = CASE WHEN $3 AND attempts < max_retries THEN NULL ELSE $4::timestamptz END,
			last_error = $2,
			updated_at = $4
		WHERE id = $1 AND status = 'processing'
		RETURNING status
	`, id, message, retry, now).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", s.transitionError(ctx, "processing_queue", "task", id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to fail task %s: %w", id, err)
	}
	return types.TaskStatus(status), nil
}

// CancelTask cancels a pending or retrying task
func (s *Store) CancelTask(ctx context.Context, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE processing_queue SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'retrying')
	`, id, now)
	if err != nil {
		return fmt.Errorf("failed to cancel task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, "processing_queue", "task", id)
	}
	return nil
}

// FailStuckTasks fails tasks processing since before cutoff with message
func (s *Store) FailStuckTasks(ctx context.Context, cutoff, now time.Time, message string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE processing_queue SET
			status = 'failed',
			last_error = $3,
			completed_at = $2,
			updated_at = $2
		WHERE status = 'processing' AND started_at < $1
	`, cutoff, now, message)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stuck tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeTasks deletes completed and cancelled tasks updated before cutoff
func (s *Store) PurgeTasks(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM processing_queue
		WHERE status IN ('completed', 'cancelled') AND updated_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// TaskStats aggregates tasks by status and type
func (s *Store) TaskStats(ctx context.Context, now time.Time) (*types.QueueStats, error) {
	stats := &types.QueueStats{
		ByStatus: make(map[types.TaskStatus]int),
		ByType:   make(map[types.TaskType]types.LaneStats),
	}

	rows, err := s.pool.Query(ctx, `
		SELECT task_type, status, count(*) FROM processing_queue GROUP BY task_type, status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			taskType, status string
			n                int
		)
		if err := rows.Scan(&taskType, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan task counts: %w", err)
		}
		st := types.TaskStatus(status)
		stats.ByStatus[st] += n
		lane := stats.ByType[types.TaskType(taskType)]
		switch st {
		case types.TaskPending:
			lane.Pending += n
		case types.TaskProcessing:
			lane.Processing += n
		case types.TaskCompleted:
			lane.Completed += n
		case types.TaskFailed:
			lane.Failed += n
		case types.TaskRetrying:
			lane.Retrying += n
		case types.TaskCancelled:
			lane.Cancelled += n
		}
		stats.ByType[types.TaskType(taskType)] = lane
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var (
		avgMillis     *float64
		oldestPending *time.Time
	)
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT avg(extract(epoch FROM completed_at - started_at) * 1000)
			   FROM processing_queue
			  WHERE status = 'completed' AND started_at IS NOT NULL AND completed_at IS NOT NULL),
			(SELECT min(created_at) FROM processing_queue WHERE status IN ('pending', 'retrying'))
	`).Scan(&avgMillis, &oldestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate task timings: %w", err)
	}
	if avgMillis != nil {
		stats.AvgProcessingMillis = *avgMillis
	}
	if oldestPending != nil {
		stats.OldestPendingAge = now.Sub(*oldestPending)
	}
	return stats, nil
}

// GetTask returns one task
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM processing_queue WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return t, nil
}

const syncColumns = `id, business_id, place_id, batch_id, priority, status, attempts,
	last_error, result, requested_at, started_at, completed_at`

func scanSyncItem(row pgx.Row) (*types.SyncItem, error) {
	var (
		it     types.SyncItem
		status string
		result []byte
	)
	err := row.Scan(&it.ID, &it.BusinessID, &it.PlaceID, &it.BatchID, &it.Priority, &status, &it.Attempts,
		&it.LastError, &result, &it.RequestedAt, &it.StartedAt, &it.CompletedAt)
	if err != nil {
		return nil, err
	}
	it.Status = types.SyncStatus(status)
	if len(result) > 0 {
		var r types.SyncResult
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("failed to decode sync result: %w", err)
		}
		it.Result = &r
	}
	return &it, nil
}

// EnqueueSyncItem inserts item unless the business has an active item
func (s *Store) EnqueueSyncItem(ctx context.Context, item types.SyncItem) (string, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		var id string
		err := s.pool.QueryRow(ctx, `
			INSERT INTO review_sync_queue (id, business_id, place_id, batch_id, priority, status, requested_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (business_id) WHERE status IN ('pending', 'processing') DO NOTHING
			RETURNING id
		`, item.ID, item.BusinessID, item.PlaceID, item.BatchID, item.Priority, string(item.Status),
			item.RequestedAt).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("failed to insert sync item: %w", err)
		}

		err = s.pool.QueryRow(ctx, `
			SELECT id FROM review_sync_queue
			WHERE business_id = $1 AND status IN ('pending', 'processing')
		`, item.BusinessID).Scan(&id)
		if err == nil {
			return id, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("failed to load active sync item: %w", err)
		}
	}
	return "", false, fmt.Errorf("enqueue of sync for %s kept conflicting", item.BusinessID)
}

func processingSyncCount(ctx context.Context, tx pgx.Tx) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, syncClaimLockKey); err != nil {
		return 0, fmt.Errorf("failed to take sync claim lock: %w", err)
	}
	var n int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM review_sync_queue WHERE status = 'processing'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count processing items: %w", err)
	}
	return n, nil
}

// ClaimSyncItems claims pending items without exceeding ceiling in flight
func (s *Store) ClaimSyncItems(ctx context.Context, limit, ceiling int, now time.Time) ([]types.SyncItem, error) {
	var out []types.SyncItem
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		inFlight, err := processingSyncCount(ctx, tx)
		if err != nil {
			return err
		}
		slots := min(ceiling-inFlight, limit)
		if slots <= 0 {
			return nil
		}

		rows, err := tx.Query(ctx, `
			UPDATE review_sync_queue SET
				status = 'processing', attempts = attempts + 1, started_at = $2
			WHERE id IN (
				SELECT id FROM review_sync_queue
				WHERE status = 'pending'
				ORDER BY priority DESC, seq
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+syncColumns, slots, now)
		if err != nil {
			return fmt.Errorf("failed to claim sync items: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			it, err := scanSyncItem(rows)
			if err != nil {
				return err
			}
			out = append(out, *it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	sortSyncClaims(out)
	return out, nil
}

// sortSyncClaims restores claim order, which RETURNING does not guarantee
func sortSyncClaims(items []types.SyncItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].RequestedAt.Before(items[j].RequestedAt)
	})
}

// MarkSyncProcessing claims one pending item
func (s *Store) MarkSyncProcessing(ctx context.Context, id string, ceiling int, now time.Time) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM review_sync_queue WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load sync item %s: %w", id, err)
		}
		if types.SyncStatus(status) != types.SyncPending {
			return fmt.Errorf("sync item %s is %s: %w", id, status, types.ErrInvalidState)
		}

		inFlight, err := processingSyncCount(ctx, tx)
		if err != nil {
			return err
		}
		if inFlight >= ceiling {
			return types.ErrCapacity
		}
		_, err = tx.Exec(ctx, `
			UPDATE review_sync_queue SET status = 'processing', attempts = attempts + 1, started_at = $2
			WHERE id = $1
		`, id, now)
		if err != nil {
			return fmt.Errorf("failed to mark sync item %s processing: %w", id, err)
		}
		return nil
	})
}

// CompleteSyncItem records the result of attempt of a processing item
func (s *Store) CompleteSyncItem(ctx context.Context, id string, attempt int, result types.SyncResult, now time.Time) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode sync result: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE review_sync_queue SET status = 'completed', result = $2, completed_at = $3
		WHERE id = $1 AND status = 'processing' AND attempts = $4
	`, id, data, now, attempt)
	if err != nil {
		return fmt.Errorf("failed to complete sync item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, "review_sync_queue", "sync item", id)
	}
	return nil
}

// FailSyncItem fails attempt of a processing item
func (s *Store) FailSyncItem(ctx context.Context, id string, attempt int, message string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE review_sync_queue SET status = 'failed', last_error = $2, completed_at = $3
		WHERE id = $1 AND status = 'processing' AND attempts = $4
	`, id, message, now, attempt)
	if err != nil {
		return fmt.Errorf("failed to fail sync item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, "review_sync_queue", "sync item", id)
	}
	return nil
}

// RetrySyncItem resets a failed item to pending at the back of its priority
func (s *Store) RetrySyncItem(ctx context.Context, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE review_sync_queue q SET
			status = 'pending',
			started_at = NULL,
			completed_at = NULL,
			requested_at = $2,
			seq = nextval(pg_get_serial_sequence('review_sync_queue', 'seq'))
		WHERE q.id = $1 AND q.status = 'failed'
		  AND NOT EXISTS (
			SELECT 1 FROM review_sync_queue o
			WHERE o.business_id = q.business_id AND o.id <> q.id
			  AND o.status IN ('pending', 'processing')
		  )
	`, id, now)
	if err != nil {
		return fmt.Errorf("failed to retry sync item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, "review_sync_queue", "sync item", id)
	}
	return nil
}

// CancelSyncItem deletes a pending item
func (s *Store) CancelSyncItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM review_sync_queue WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel sync item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, "review_sync_queue", "sync item", id)
	}
	return nil
}

// FailStuckSyncItems fails items processing since before cutoff
func (s *Store) FailStuckSyncItems(ctx context.Context, cutoff, now time.Time, message string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE review_sync_queue SET status = 'failed', last_error = $3, completed_at = $2
		WHERE status = 'processing' AND started_at < $1
	`, cutoff, now, message)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stuck sync items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SyncQueueCounts aggregates items by status
func (s *Store) SyncQueueCounts(ctx context.Context, batchID string) (types.SyncCounts, error) {
	var c types.SyncCounts
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'processing'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed')
		FROM review_sync_queue
		WHERE $1 = '' OR batch_id = $1
	`, batchID).Scan(&c.Pending, &c.Processing, &c.Completed, &c.Failed)
	if err != nil {
		return c, fmt.Errorf("failed to count sync items: %w", err)
	}
	return c, nil
}

// PurgeSyncItems deletes completed items finished before cutoff
func (s *Store) PurgeSyncItems(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM review_sync_queue WHERE status = 'completed' AND completed_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sync items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetSyncItem returns one sync item
func (s *Store) GetSyncItem(ctx context.Context, id string) (*types.SyncItem, error) {
	it, err := scanSyncItem(s.pool.QueryRow(ctx,
		`SELECT `+syncColumns+` FROM review_sync_queue WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load sync item %s: %w", id, err)
	}
	return it, nil
}
