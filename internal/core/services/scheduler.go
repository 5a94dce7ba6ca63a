package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Scheduler enqueues produce tasks on their configured cadence. It runs on
// worker nodes.
//
// For multi-worker deployments, configure a DistributedLock so two
// schedulers never enqueue the same batch.
type Scheduler struct {
	store     driven.SchedulerStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Store        driven.SchedulerStore
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock // optional, for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // how often to check for due schedules (default: 30s)
	LockTTL      time.Duration // TTL for the distributed lock (default: 60s)
	LockRequired bool          // skip the cycle when the lock cannot be acquired
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 60 * time.Second
	}

	lockRequired := cfg.LockRequired
	if cfg.Lock != nil {
		lockRequired = true
	}

	return &Scheduler{
		store:        cfg.Store,
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: lockRequired,
	}
}

// Start begins the scheduler loop. It runs until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// checkAndEnqueue enqueues a task for every due schedule. With a lock
// configured the cycle runs only on the instance that holds it.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, "scheduler", s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(ctx, "scheduler"); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	schedules, err := s.store.GetDueScheduledTasks(ctx)
	if err != nil {
		s.logger.Error("failed to get due schedules", "error", err)
		return
	}

	for _, scheduled := range schedules {
		if !scheduled.IsDue() {
			continue
		}

		task := domain.NewTask(scheduled.Type, scheduled.Payload)

		if err := s.taskQueue.Enqueue(ctx, task); err != nil {
			s.logger.Error("failed to enqueue scheduled task",
				"scheduled_id", scheduled.ID,
				"error", err,
			)
			_ = s.store.UpdateLastRun(ctx, scheduled.ID, err.Error())
			continue
		}

		s.logger.Info("enqueued scheduled task",
			"scheduled_id", scheduled.ID,
			"task_id", task.ID,
			"task_type", task.Type,
		)

		if err := s.store.UpdateLastRun(ctx, scheduled.ID, ""); err != nil {
			s.logger.Warn("failed to update schedule last run",
				"scheduled_id", scheduled.ID,
				"error", err,
			)
		}
	}
}

// CreateScheduledTask creates a new scheduled task.
func (s *Scheduler) CreateScheduledTask(ctx context.Context, scheduled *domain.ScheduledTask) error {
	return s.store.SaveScheduledTask(ctx, scheduled)
}

// GetScheduledTask retrieves a scheduled task by ID.
func (s *Scheduler) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	return s.store.GetScheduledTask(ctx, id)
}

// ListScheduledTasks lists all scheduled tasks.
func (s *Scheduler) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	return s.store.ListScheduledTasks(ctx)
}

// DeleteScheduledTask deletes a scheduled task.
func (s *Scheduler) DeleteScheduledTask(ctx context.Context, id string) error {
	return s.store.DeleteScheduledTask(ctx, id)
}

// SetScheduledTaskEnabled flips a schedule on or off.
func (s *Scheduler) SetScheduledTaskEnabled(ctx context.Context, id string, enabled bool) error {
	scheduled, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		return err
	}
	scheduled.Enabled = enabled
	return s.store.SaveScheduledTask(ctx, scheduled)
}

// TriggerNow immediately enqueues a schedule's task, ignoring its cadence.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Task, error) {
	scheduled, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task := domain.NewTask(scheduled.Type, scheduled.Payload)

	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered scheduled task",
		"scheduled_id", scheduled.ID,
		"task_id", task.ID,
	)

	return task, nil
}
