package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// NewProduceCommand builds the produce subcommand, which renders videos in
// the foreground without going through the task queue.
func NewProduceCommand(state *rootState) *cobra.Command {
	var (
		sourceID string
		count    int
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Produce one or more videos and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if force && sourceID == "" {
				return fmt.Errorf("--force requires --source")
			}

			ctx, cancel := signalContext()
			defer cancel()

			app, err := buildApp(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			var results []*domain.ProduceResult
			if sourceID != "" {
				res, err := app.orchestrator.ProduceSource(ctx, sourceID, force)
				if err != nil {
					return err
				}
				results = append(results, res)
			} else {
				results, err = app.orchestrator.ProduceBatch(ctx, count)
				if err != nil {
					return err
				}
			}

			produced := 0
			for _, res := range results {
				switch {
				case res.Skipped:
					fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s\n", res.Error)
				case res.Success:
					produced++
					fmt.Fprintf(cmd.OutOrStdout(), "produced %s (%s, %.1fs audio)\n",
						res.Output, res.SourceID, res.Stats.AudioSeconds)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "failed %s: %s\n", res.SourceID, res.Error)
				}
			}

			if produced == 0 && len(results) > 0 {
				return fmt.Errorf("no videos produced")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "produce a specific thread instead of selecting one")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "how many videos to produce")
	cmd.Flags().BoolVar(&force, "force", false, "produce --source again even when it is in the produced ledger")

	return cmd
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
