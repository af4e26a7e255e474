package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bizrank/review-service/internal/types"
)

// EnqueueTask inserts task unless an open task exists for (business, type)
func (s *Store) EnqueueTask(_ context.Context, task types.Task) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.BusinessID == task.BusinessID && t.Type == task.Type &&
			(t.Status == types.TaskPending || t.Status == types.TaskRetrying) {
			return t.ID, false, nil
		}
	}
	if _, exists := s.tasks[task.ID]; exists {
		return "", false, fmt.Errorf("task %s already exists", task.ID)
	}
	stored := task
	s.tasks[task.ID] = &stored
	s.taskSeq[task.ID] = s.nextSeq()
	return task.ID, true, nil
}

// ClaimNextTask claims the highest-priority, oldest open task
func (s *Store) ClaimNextTask(_ context.Context, taskType types.TaskType, now time.Time) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *types.Task
	for _, t := range s.tasks {
		if t.Status != types.TaskPending && t.Status != types.TaskRetrying {
			continue
		}
		if taskType != "" && t.Type != taskType {
			continue
		}
		if next == nil || t.Priority > next.Priority ||
			(t.Priority == next.Priority && s.taskSeq[t.ID] < s.taskSeq[next.ID]) {
			next = t
		}
	}
	if next == nil {
		return nil, nil
	}
	started := now
	next.Status = types.TaskProcessing
	next.Attempts++
	next.StartedAt = &started
	next.UpdatedAt = now
	out := *next
	return &out, nil
}

func (s *Store) processingTask(id string) (*types.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if t.Status != types.TaskProcessing {
		return nil, fmt.Errorf("task %s is %s: %w", id, t.Status, types.ErrInvalidState)
	}
	return t, nil
}

// CompleteTask marks a processing task completed
func (s *Store) CompleteTask(_ context.Context, id string, result json.RawMessage, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.processingTask(id)
	if err != nil {
		return err
	}
	done := now
	t.Status = types.TaskCompleted
	t.Result = result
	t.CompletedAt = &done
	t.UpdatedAt = now
	return nil
}

// FailTask routes a processing task to retrying or failed
func (s *Store) FailTask(_ context.Context, id, message string, retry bool, now time.Time) (types.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.processingTask(id)
	if err != nil {
		return "", err
	}
	t.LastError = message
	t.UpdatedAt = now
	if retry && t.Attempts < t.MaxRetries {
		t.Status = types.TaskRetrying
	} else {
		done := now
		t.Status = types.TaskFailed
		t.CompletedAt = &done
	}
	return t.Status, nil
}

// CancelTask cancels a pending or retrying task
func (s *Store) CancelTask(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if t.Status != types.TaskPending && t.Status != types.TaskRetrying {
		return fmt.Errorf("task %s is %s: %w", id, t.Status, types.ErrInvalidState)
	}
	t.Status = types.TaskCancelled
	t.UpdatedAt = now
	return nil
}

// FailStuckTasks fails tasks processing since before cutoff with message
func (s *Store) FailStuckTasks(_ context.Context, cutoff, now time.Time, message string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.Status != types.TaskProcessing || t.StartedAt == nil || !t.StartedAt.Before(cutoff) {
			continue
		}
		done := now
		t.Status = types.TaskFailed
		t.LastError = message
		t.CompletedAt = &done
		t.UpdatedAt = now
		n++
	}
	return n, nil
}

// PurgeTasks deletes completed and cancelled tasks updated before cutoff
func (s *Store) PurgeTasks(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tasks {
		if (t.Status == types.TaskCompleted || t.Status == types.TaskCancelled) && t.UpdatedAt.Before(before) {
			delete(s.tasks, id)
			delete(s.taskSeq, id)
			n++
		}
	}
	return n, nil
}

// TaskStats aggregates tasks by status and type
func (s *Store) TaskStats(_ context.Context, now time.Time) (*types.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &types.QueueStats{
		ByStatus: make(map[types.TaskStatus]int),
		ByType:   make(map[types.TaskType]types.LaneStats),
	}
	var totalMillis float64
	completed := 0
	var oldest *time.Time
	for _, t := range s.tasks {
		stats.ByStatus[t.Status]++
		lane := stats.ByType[t.Type]
		switch t.Status {
		case types.TaskPending:
			lane.Pending++
		case types.TaskProcessing:
			lane.Processing++
		case types.TaskCompleted:
			lane.Completed++
		case types.TaskFailed:
			lane.Failed++
		case types.TaskRetrying:
			lane.Retrying++
		case types.TaskCancelled:
			lane.Cancelled++
		}
		stats.ByType[t.Type] = lane

		if t.Status == types.TaskCompleted && t.StartedAt != nil && t.CompletedAt != nil {
			totalMillis += float64(t.CompletedAt.Sub(*t.StartedAt).Milliseconds())
			completed++
		}
		if t.Status == types.TaskPending || t.Status == types.TaskRetrying {
			if oldest == nil || t.CreatedAt.Before(*oldest) {
				created := t.CreatedAt
				oldest = &created
			}
		}
	}
	if completed > 0 {
		stats.AvgProcessingMillis = totalMillis / float64(completed)
	}
	if oldest != nil {
		stats.OldestPendingAge = now.Sub(*oldest)
	}
	return stats, nil
}

// GetTask returns one task
func (s *Store) GetTask(_ context.Context, id string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	out := *t
	return &out, nil
}

// EnqueueSyncItem inserts item unless the business has an active item
func (s *Store) EnqueueSyncItem(_ context.Context, item types.SyncItem) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.syncItems {
		if it.BusinessID == item.BusinessID &&
			(it.Status == types.SyncPending || it.Status == types.SyncProcessing) {
			return it.ID, false, nil
		}
	}
	if _, exists := s.syncItems[item.ID]; exists {
		return "", false, fmt.Errorf("sync item %s already exists", item.ID)
	}
	stored := item
	s.syncItems[item.ID] = &stored
	s.syncSeq[item.ID] = s.nextSeq()
	return item.ID, true, nil
}

func (s *Store) processingSyncCount() int {
	n := 0
	for _, it := range s.syncItems {
		if it.Status == types.SyncProcessing {
			n++
		}
	}
	return n
}

// ClaimSyncItems claims pending items without exceeding ceiling in flight
func (s *Store) ClaimSyncItems(_ context.Context, limit, ceiling int, now time.Time) ([]types.SyncItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := ceiling - s.processingSyncCount()
	if limit < slots {
		slots = limit
	}
	if slots <= 0 {
		return nil, nil
	}

	var pending []*types.SyncItem
	for _, it := range s.syncItems {
		if it.Status == types.SyncPending {
			pending = append(pending, it)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return s.syncSeq[pending[i].ID] < s.syncSeq[pending[j].ID]
	})
	if len(pending) > slots {
		pending = pending[:slots]
	}

	out := make([]types.SyncItem, 0, len(pending))
	for _, it := range pending {
		started := now
		it.Status = types.SyncProcessing
		it.Attempts++
		it.StartedAt = &started
		out = append(out, *it)
	}
	return out, nil
}

// MarkSyncProcessing claims one pending item
func (s *Store) MarkSyncProcessing(_ context.Context, id string, ceiling int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.syncItems[id]
	if !ok {
		return fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
	}
	if it.Status != types.SyncPending {
		return fmt.Errorf("sync item %s is %s: %w", id, it.Status, types.ErrInvalidState)
	}
	if s.processingSyncCount() >= ceiling {
		return types.ErrCapacity
	}
	started := now
	it.Status = types.SyncProcessing
	it.Attempts++
	it.StartedAt = &started
	return nil
}

// currentClaim returns the item when it is processing under attempt
func (s *Store) currentClaim(id string, attempt int) (*types.SyncItem, error) {
	it, ok := s.syncItems[id]
	if !ok {
		return nil, fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
	}
	if it.Status != types.SyncProcessing {
		return nil, fmt.Errorf("sync item %s is %s: %w", id, it.Status, types.ErrInvalidState)
	}
	if it.Attempts != attempt {
		return nil, fmt.Errorf("sync item %s attempt %d superseded by %d: %w", id, attempt, it.Attempts, types.ErrInvalidState)
	}
	return it, nil
}

// CompleteSyncItem records the result of attempt of a processing item
func (s *Store) CompleteSyncItem(_ context.Context, id string, attempt int, result types.SyncResult, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.currentClaim(id, attempt)
	if err != nil {
		return err
	}
	done := now
	res := result
	it.Status = types.SyncCompleted
	it.Result = &res
	it.CompletedAt = &done
	return nil
}

// FailSyncItem fails attempt of a processing item
func (s *Store) FailSyncItem(_ context.Context, id string, attempt int, message string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.currentClaim(id, attempt)
	if err != nil {
		return err
	}
	done := now
	it.Status = types.SyncFailed
	it.LastError = message
	it.CompletedAt = &done
	return nil
}

// RetrySyncItem resets a failed item to pending
func (s *Store) RetrySyncItem(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.syncItems[id]
	if !ok {
		return fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
	}
	if it.Status != types.SyncFailed {
		return fmt.Errorf("sync item %s is %s: %w", id, it.Status, types.ErrInvalidState)
	}
	for _, other := range s.syncItems {
		if other.ID != id && other.BusinessID == it.BusinessID &&
			(other.Status == types.SyncPending || other.Status == types.SyncProcessing) {
			return fmt.Errorf("business %s already has an active sync: %w", it.BusinessID, types.ErrInvalidState)
		}
	}
	it.Status = types.SyncPending
	it.StartedAt = nil
	it.CompletedAt = nil
	it.RequestedAt = now
	s.syncSeq[id] = s.nextSeq()
	return nil
}

// CancelSyncItem deletes a pending item
func (s *Store) CancelSyncItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.syncItems[id]
	if !ok {
		return fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
	}
	if it.Status != types.SyncPending {
		return fmt.Errorf("sync item %s is %s: %w", id, it.Status, types.ErrInvalidState)
	}
	delete(s.syncItems, id)
	delete(s.syncSeq, id)
	return nil
}

// FailStuckSyncItems fails items processing since before cutoff
func (s *Store) FailStuckSyncItems(_ context.Context, cutoff, now time.Time, message string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.syncItems {
		if it.Status != types.SyncProcessing || it.StartedAt == nil || !it.StartedAt.Before(cutoff) {
			continue
		}
		done := now
		it.Status = types.SyncFailed
		it.LastError = message
		it.CompletedAt = &done
		n++
	}
	return n, nil
}

// SyncQueueCounts aggregates items by status
func (s *Store) SyncQueueCounts(_ context.Context, batchID string) (types.SyncCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c types.SyncCounts
	for _, it := range s.syncItems {
		if batchID != "" && it.BatchID != batchID {
			continue
		}
		switch it.Status {
		case types.SyncPending:
			c.Pending++
		case types.SyncProcessing:
			c.Processing++
		case types.SyncCompleted:
			c.Completed++
		case types.SyncFailed:
			c.Failed++
		}
	}
	return c, nil
}

// PurgeSyncItems deletes completed items finished before cutoff
func (s *Store) PurgeSyncItems(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, it := range s.syncItems {
		if it.Status == types.SyncCompleted && it.CompletedAt != nil && it.CompletedAt.Before(before) {
			delete(s.syncItems, id)
			delete(s.syncSeq, id)
			n++
		}
	}
	return n, nil
}

// GetSyncItem returns one sync item
func (s *Store) GetSyncItem(_ context.Context, id string) (*types.SyncItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.syncItems[id]
	if !ok {
		return nil, fmt.Errorf("sync item %s: %w", id, types.ErrNotFound)
	}
	out := *it
	return &out, nil
}
