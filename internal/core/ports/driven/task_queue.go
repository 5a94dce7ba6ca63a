package driven

import (
	"context"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// TaskQueue handles background task queuing and processing.
// Implementations can use Redis (preferred) or Postgres (fallback).
type TaskQueue interface {
	// Enqueue adds a task to the queue for processing.
	Enqueue(ctx context.Context, task *domain.Task) error

	// Dequeue retrieves the next available task for processing.
	// The task is marked as processing and will not be returned to other
	// workers. Returns nil, nil if no tasks are available.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout retrieves the next available task, waiting up to
	// timeout seconds. Returns nil, nil when the timeout elapses.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges successful completion of a task.
	Ack(ctx context.Context, taskID string) error

	// Nack indicates task processing failed and should be retried.
	// If max retries are exceeded the task moves to the failed state.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListTasks retrieves tasks matching the filter criteria.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// PurgeTasks removes completed and failed tasks older than the given
	// age in seconds. Returns the number removed.
	PurgeTasks(ctx context.Context, olderThan int) (int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	// Status filters by task status (optional, empty means all).
	Status domain.TaskStatus

	// Type filters by task type (optional, empty means all).
	Type domain.TaskType

	// Limit is the maximum number of tasks to return.
	Limit int

	// Offset is the number of tasks to skip.
	Offset int
}

// QueueStats contains queue statistics.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`

	// OldestPendingAge is the age of the oldest pending task in seconds.
	OldestPendingAge int64 `json:"oldest_pending_age"`
}

// SchedulerStore handles persistence for scheduled tasks. Scheduled tasks
// are configuration, not transient queue items, so they live apart from
// the queue.
type SchedulerStore interface {
	// GetScheduledTask retrieves a scheduled task by ID.
	GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// ListScheduledTasks retrieves all scheduled tasks.
	ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// SaveScheduledTask creates or updates a scheduled task.
	SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteScheduledTask removes a scheduled task.
	DeleteScheduledTask(ctx context.Context, id string) error

	// GetDueScheduledTasks retrieves scheduled tasks that are due to run.
	GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// UpdateLastRun updates the last run time and next run time.
	UpdateLastRun(ctx context.Context, id string, lastError string) error
}
