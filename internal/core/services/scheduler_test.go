package services

import (
	"context"
	"testing"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven/mocks"
)

func dueSchedule(id string) *domain.ScheduledTask {
	s := domain.NewScheduledTask(id, "nightly batch", domain.TaskTypeProduceBatch, time.Hour)
	s.Payload = map[string]string{"count": "2"}
	s.NextRun = time.Now().Add(-time.Minute)
	return s
}

func TestScheduler_EnqueuesDueTasks(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	ctx := context.Background()

	if err := store.SaveScheduledTask(ctx, dueSchedule("s1")); err != nil {
		t.Fatal(err)
	}
	notDue := domain.NewScheduledTask("s2", "later", domain.TaskTypeProduceBatch, time.Hour)
	if err := store.SaveScheduledTask(ctx, notDue); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(SchedulerConfig{Store: store, TaskQueue: queue})
	s.checkAndEnqueue(ctx)

	if queue.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", queue.PendingCount())
	}

	task, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if task.Type != domain.TaskTypeProduceBatch {
		t.Errorf("type = %s", task.Type)
	}
	if task.BatchCount() != 2 {
		t.Errorf("batch count = %d, want 2 (payload carried over)", task.BatchCount())
	}

	if len(store.UpdateLastRunCalls) != 1 || store.UpdateLastRunCalls[0] != "s1" {
		t.Errorf("last run updates = %v", store.UpdateLastRunCalls)
	}
}

func TestScheduler_DisabledScheduleIsSkipped(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	ctx := context.Background()

	sched := dueSchedule("s1")
	sched.Enabled = false
	if err := store.SaveScheduledTask(ctx, sched); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(SchedulerConfig{Store: store, TaskQueue: queue})
	s.checkAndEnqueue(ctx)

	if queue.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0", queue.PendingCount())
	}
}

func TestScheduler_LockHeldSkipsCycle(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	lock := mocks.NewMockDistributedLock()
	ctx := context.Background()

	if err := store.SaveScheduledTask(ctx, dueSchedule("s1")); err != nil {
		t.Fatal(err)
	}

	// Another instance holds the lock.
	if _, err := lock.Acquire(ctx, "scheduler", time.Minute); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(SchedulerConfig{Store: store, TaskQueue: queue, Lock: lock})
	s.checkAndEnqueue(ctx)

	if queue.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0 while lock is held elsewhere", queue.PendingCount())
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:        mocks.NewMockSchedulerStore(),
		TaskQueue:    mocks.NewMockTaskQueue(),
		PollInterval: 10 * time.Millisecond,
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	// Stopping twice must not panic or hang.
	s.Stop()
}

func TestScheduler_TriggerNow(t *testing.T) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	ctx := context.Background()

	sched := domain.NewScheduledTask("s1", "nightly", domain.TaskTypeProduceBatch, time.Hour)
	if err := store.SaveScheduledTask(ctx, sched); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(SchedulerConfig{Store: store, TaskQueue: queue})
	task, err := s.TriggerNow(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type != domain.TaskTypeProduceBatch {
		t.Errorf("type = %s", task.Type)
	}
	if queue.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1", queue.PendingCount())
	}
}
