package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeProduceSource produces one video for a specific thread
	TaskTypeProduceSource TaskType = "produce_source"
	// TaskTypeProduceBatch produces videos for the configured subreddit
	TaskTypeProduceBatch TaskType = "produce_batch"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	ID   string   `json:"id"`
	Type TaskType `json:"type"`

	// Payload contains task-specific data.
	// For produce_source: {"source_id": "abc123"}
	// For produce_batch: {"count": "3"}
	Payload map[string]string `json:"payload"`

	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Error       string     `json:"error,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewProduceSourceTask creates a task to produce a specific thread
func NewProduceSourceTask(sourceID string) *Task {
	return NewTask(TaskTypeProduceSource, map[string]string{
		"source_id": sourceID,
	})
}

// NewProduceBatchTask creates a task to produce count videos from the
// configured subreddit
func NewProduceBatchTask(count int) *Task {
	payload := map[string]string{}
	if count > 1 {
		payload["count"] = strconv.Itoa(count)
	}
	return NewTask(TaskTypeProduceBatch, payload)
}

// SourceID extracts the source_id from the payload (for produce_source tasks)
func (t *Task) SourceID() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["source_id"]
}

// Force reports whether the payload asks to bypass the already-produced skip.
func (t *Task) Force() bool {
	if t.Payload == nil {
		return false
	}
	return t.Payload["force"] == "true"
}

// BatchCount extracts the count from the payload, defaulting to 1.
func (t *Task) BatchCount() int {
	if t.Payload == nil {
		return 1
	}
	n, err := strconv.Atoi(t.Payload["count"])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// ScheduledTask represents a recurring task configuration
type ScheduledTask struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     TaskType      `json:"type"`
	Interval time.Duration `json:"interval"`
	Enabled  bool          `json:"enabled"`

	// Payload is copied onto every task this schedule enqueues.
	Payload map[string]string `json:"payload,omitempty"`

	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   time.Time  `json:"next_run"`
	LastError string     `json:"last_error,omitempty"`
}

// NewScheduledTask creates a new scheduled task
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// IsDue returns true if the scheduled task should be triggered
func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && time.Now().After(s.NextRun)
}

// UpdateNextRun calculates the next run time after execution
func (s *ScheduledTask) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

