package entity

import "time"

// Task statuses reported to API clients.
const (
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// ScrapeTask is the externally visible state of one scrape run.
type ScrapeTask struct {
	ID          string    `json:"task_id"`
	Category    string    `json:"category"`
	MaxImages   int       `json:"max_images"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	SavedImages int       `json:"saved_images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Terminal reports whether the task will not change anymore.
func (t *ScrapeTask) Terminal() bool {
	return t.Status != TaskStatusRunning
}
