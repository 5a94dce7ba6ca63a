// Package worker runs the background task loop: it dequeues production
// tasks and drives the produce orchestrator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driving"
	"github.com/storyforge-labs/storyforge-core/internal/core/services"
)

// Worker processes tasks from the task queue.
type Worker struct {
	taskQueue    driven.TaskQueue
	orchestrator driving.ProduceOrchestrator
	scheduler    *services.Scheduler
	logger       *slog.Logger

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue    driven.TaskQueue
	Orchestrator driving.ProduceOrchestrator

	// Scheduler is optional; when set it is started and stopped with the
	// worker.
	Scheduler *services.Scheduler

	Logger *slog.Logger

	// Concurrency is the number of concurrent task processors. Video
	// production is ffmpeg-bound, so one per host is the usual setting.
	Concurrency int

	// DequeueTimeout is how long to wait for a task before checking the
	// stop signal again, in seconds.
	DequeueTimeout int
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		orchestrator:   cfg.Orchestrator,
		scheduler:      cfg.Scheduler,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

// processTask runs a single task and acks or nacks it based on the outcome.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeProduceSource:
		err = w.handleProduceSource(ctx, task, logger)
	case domain.TaskTypeProduceBatch:
		err = w.handleProduceBatch(ctx, task, logger)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)

		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleProduceSource produces a video for the thread named in the payload.
// A skipped result is not a failure: the thread is already produced or has
// nothing usable, and a retry would not change that.
func (w *Worker) handleProduceSource(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	sourceID := task.SourceID()
	if sourceID == "" {
		return fmt.Errorf("source_id not found in task payload")
	}

	result, err := w.orchestrator.ProduceSource(ctx, sourceID, task.Force())
	if err != nil {
		return err
	}

	if result.Skipped {
		logger.Info("production skipped", "source_id", sourceID, "reason", result.Error)
		return nil
	}
	if !result.Success {
		return fmt.Errorf("produce failed: %s", result.Error)
	}

	logger.Info("video produced", "source_id", sourceID, "output", result.Output)
	return nil
}

// handleProduceBatch produces the number of videos named in the payload.
// Per-thread failures are logged; the task only fails when nothing at all
// was produced and at least one attempt errored.
func (w *Worker) handleProduceBatch(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	results, err := w.orchestrator.ProduceBatch(ctx, task.BatchCount())
	if err != nil {
		return err
	}

	var produced, failed int
	for _, result := range results {
		switch {
		case result.Success:
			produced++
		case result.Skipped:
		default:
			failed++
			logger.Warn("batch item failed", "source_id", result.SourceID, "error", result.Error)
		}
	}

	logger.Info("batch finished",
		"requested", task.BatchCount(),
		"produced", produced,
		"failed", failed,
	)

	if produced == 0 && failed > 0 {
		return fmt.Errorf("batch produced nothing: %d failures", failed)
	}

	return nil
}

// Health reports the worker and queue status.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
