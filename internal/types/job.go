package types

import "time"

// JobRun is the persisted timing of a scheduled job, used to resume its
// schedule across restarts
type JobRun struct {
	Name         string     `json:"name"`
	LastStarted  *time.Time `json:"lastStarted,omitempty"`
	LastFinished *time.Time `json:"lastFinished,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
}
