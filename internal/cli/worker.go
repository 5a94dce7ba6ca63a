package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/services"
	"github.com/storyforge-labs/storyforge-core/internal/worker"
)

// batchScheduleID identifies the built-in recurring batch schedule.
const batchScheduleID = "produce-batch"

var errWorkerNeedsQueue = errors.New("the worker needs a task queue: configure storage.redis_url or the postgres backend")

func newAppWorker(state *rootState, app *app, scheduler *services.Scheduler) *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      app.queue,
		Orchestrator:   app.orchestrator,
		Scheduler:      scheduler,
		Logger:         state.logger,
		Concurrency:    state.cfg.Worker.Concurrency,
		DequeueTimeout: state.cfg.Worker.DequeueTimeout,
	})
}

// NewWorkerCommand builds the worker subcommand. The worker consumes the
// task queue until interrupted; with a Postgres backend and a configured
// interval it also runs the recurring batch schedule.
func NewWorkerCommand(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := buildApp(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.queue == nil {
				return errWorkerNeedsQueue
			}

			var scheduler *services.Scheduler
			if state.cfg.Worker.ScheduleInterval != "" {
				scheduler, err = setupScheduler(ctx, state, app)
				if err != nil {
					return err
				}
			}

			w := newAppWorker(state, app, scheduler)
			if err := w.Start(ctx); err != nil {
				return err
			}
			state.logger.Info("worker started", "concurrency", state.cfg.Worker.Concurrency)

			<-ctx.Done()
			state.logger.Info("shutting down")
			w.Stop()
			return nil
		},
	}
	return cmd
}

// setupScheduler ensures the recurring batch schedule exists and returns a
// scheduler bound to it.
func setupScheduler(ctx context.Context, state *rootState, app *app) (*services.Scheduler, error) {
	if app.schedStore == nil {
		return nil, fmt.Errorf("worker.schedule_interval needs the postgres backend")
	}

	interval, err := cast.ToDurationE(state.cfg.Worker.ScheduleInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid worker.schedule_interval: %w", err)
	}

	scheduled, err := app.schedStore.GetScheduledTask(ctx, batchScheduleID)
	if errors.Is(err, domain.ErrNotFound) {
		scheduled = domain.NewScheduledTask(batchScheduleID, "recurring batch produce",
			domain.TaskTypeProduceBatch, interval)
	} else if err != nil {
		return nil, fmt.Errorf("load batch schedule: %w", err)
	}
	scheduled.Interval = interval
	scheduled.Payload = map[string]string{
		"count": strconv.Itoa(state.cfg.Worker.ScheduleBatchCount),
	}
	if err := app.schedStore.SaveScheduledTask(ctx, scheduled); err != nil {
		return nil, fmt.Errorf("save batch schedule: %w", err)
	}

	return services.NewScheduler(services.SchedulerConfig{
		Store:     app.schedStore,
		TaskQueue: app.queue,
		Lock:      app.lock,
		Logger:    state.logger,
	}), nil
}
