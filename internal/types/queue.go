package types

import (
	"encoding/json"
	"time"
)

// SyncStatus is the lifecycle state of a review sync job
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncProcessing SyncStatus = "processing"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// SyncResult records what a completed sync imported
type SyncResult struct {
	Fetched    int `json:"fetched"`
	Pages      int `json:"pages"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"` // empty comment text
	Failed     int `json:"failed"`
}

// SyncItem is one "business needs review sync" job
type SyncItem struct {
	ID          string      `json:"id"`
	BusinessID  string      `json:"businessId"`
	PlaceID     string      `json:"placeId"`
	BatchID     string      `json:"batchId,omitempty"` // set by bulk enqueue
	Priority    int         `json:"priority"`
	Status      SyncStatus  `json:"status"`
	Attempts    int         `json:"attempts"`
	LastError   string      `json:"lastError,omitempty"`
	Result      *SyncResult `json:"result,omitempty"`
	RequestedAt time.Time   `json:"requestedAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// SyncCounts aggregates sync items by status
type SyncCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Total returns the number of items across all statuses
func (c SyncCounts) Total() int {
	return c.Pending + c.Processing + c.Completed + c.Failed
}

// TaskType is a processing queue lane
type TaskType string

const (
	TaskAIAnalysis           TaskType = "ai_analysis"
	TaskRankingCalculation   TaskType = "ranking_calculation"
	TaskAchievementDetection TaskType = "achievement_detection"
	TaskBatchProcessing      TaskType = "batch_processing"
)

// AllTaskTypes lists every lane in processing order
var AllTaskTypes = []TaskType{
	TaskAIAnalysis,
	TaskRankingCalculation,
	TaskAchievementDetection,
	TaskBatchProcessing,
}

// Valid reports whether t is a known lane
func (t TaskType) Valid() bool {
	for _, known := range AllTaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of a processing queue item
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskRetrying   TaskStatus = "retrying"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is one processing queue item
type Task struct {
	ID          string          `json:"id"`
	Type        TaskType        `json:"type"`
	BusinessID  string          `json:"businessId"`
	Status      TaskStatus      `json:"status"`
	Priority    int             `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxRetries  int             `json:"maxRetries"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LaneStats aggregates one task type
type LaneStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
	Cancelled  int `json:"cancelled"`
}

// QueueStats is the operational summary of the processing queue
type QueueStats struct {
	ByStatus            map[TaskStatus]int     `json:"byStatus"`
	ByType              map[TaskType]LaneStats `json:"byType"`
	AvgProcessingMillis float64                `json:"avgProcessingMillis"`
	OldestPendingAge    time.Duration          `json:"oldestPendingAgeNs"`
}
