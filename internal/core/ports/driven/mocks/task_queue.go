package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// MockTaskQueue is an in-memory TaskQueue for testing.
type MockTaskQueue struct {
	mu      sync.Mutex
	pending []*domain.Task
	byID    map[string]*domain.Task

	// EnqueueErr makes Enqueue fail when set.
	EnqueueErr error
}

// NewMockTaskQueue creates a new mock task queue.
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{byID: make(map[string]*domain.Task)}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, task)
	m.byID[task.ID] = task
	return nil
}

func (m *MockTaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	task := m.pending[0]
	m.pending = m.pending[1:]
	task.MarkProcessing()
	return task, nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	return m.Dequeue(ctx)
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.byID[taskID]; ok {
		task.MarkCompleted()
	}
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.byID[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.CanRetry() {
		task.Retry(reason)
		m.pending = append(m.pending, task)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

func (m *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.byID[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *MockTaskQueue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.byID {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Type != "" && task.Type != filter.Type {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (m *MockTaskQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(olderThan) * time.Second)
	n := 0
	for id, task := range m.byID {
		if task.Status != domain.TaskStatusCompleted && task.Status != domain.TaskStatusFailed {
			continue
		}
		if task.UpdatedAt.Before(cutoff) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *MockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &driven.QueueStats{}
	for _, task := range m.byID {
		switch task.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error { return nil }

func (m *MockTaskQueue) Close() error { return nil }

// PendingCount returns the number of queued tasks.
func (m *MockTaskQueue) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// MockSchedulerStore is an in-memory SchedulerStore for testing.
type MockSchedulerStore struct {
	mu        sync.Mutex
	schedules map[string]*domain.ScheduledTask

	// UpdateLastRunCalls records schedule IDs passed to UpdateLastRun.
	UpdateLastRunCalls []string
}

// NewMockSchedulerStore creates a new mock scheduler store.
func NewMockSchedulerStore() *MockSchedulerStore {
	return &MockSchedulerStore{schedules: make(map[string]*domain.ScheduledTask)}
}

func (m *MockSchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *MockSchedulerStore) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ScheduledTask
	for _, task := range m.schedules {
		out = append(out, task)
	}
	return out, nil
}

func (m *MockSchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[task.ID] = task
	return nil
}

func (m *MockSchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func (m *MockSchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ScheduledTask
	for _, task := range m.schedules {
		if task.IsDue() {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *MockSchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateLastRunCalls = append(m.UpdateLastRunCalls, id)
	if task, ok := m.schedules[id]; ok {
		task.LastError = lastError
		task.UpdateNextRun()
	}
	return nil
}
