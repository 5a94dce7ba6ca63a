package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	apihttp "github.com/storyforge-labs/storyforge-core/internal/adapters/driving/http"
)

// NewServeCommand builds the serve subcommand, which runs the operational
// HTTP API with or without an embedded worker.
func NewServeCommand(state *rootState) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operational HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := buildApp(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			server := apihttp.NewServer(apihttp.Config{
				Host:    state.cfg.API.Host,
				Port:    state.cfg.API.Port,
				Version: version,
				Logger:  state.logger,
			}, app.ledger, app.queue, nil, nil)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			if withWorker {
				if app.queue == nil {
					return errWorkerNeedsQueue
				}
				w := newAppWorker(state, app, nil)
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return server.Stop(stopCtx)
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the background worker in this process")

	return cmd
}
