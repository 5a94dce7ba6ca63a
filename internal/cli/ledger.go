package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storyforge-labs/storyforge-core/internal/tui"
)

// NewLedgerCommand builds the ledger subcommand. Without flags it opens
// the interactive browser; the subcommands print and edit the ledgers for
// scripting.
func NewLedgerCommand(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and edit the dedup and produced ledgers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := buildApp(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			return tui.Run(app.ledger)
		},
	}

	cmd.AddCommand(newLedgerListCommand(state))
	cmd.AddCommand(newLedgerMarkCommand(state))

	return cmd
}

func newLedgerListCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the produced ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := buildApp(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			videos, err := app.ledger.Produced(ctx)
			if err != nil {
				return err
			}
			for _, v := range videos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					v.CreatedAt.Format("2006-01-02 15:04"), v.SourceID, v.Subreddit, v.Filename)
			}
			return nil
		},
	}
}

func newLedgerMarkCommand(state *rootState) *cobra.Command {
	var unitIDs []string

	cmd := &cobra.Command{
		Use:   "mark <source-id>",
		Short: "Mark a thread unsuitable, or specific units as used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := buildApp(ctx, state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			sourceID := strings.TrimSpace(args[0])
			if len(unitIDs) > 0 {
				if err := app.ledger.MarkUsed(ctx, sourceID, unitIDs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "marked %d units used on %s\n", len(unitIDs), sourceID)
				return nil
			}

			if err := app.ledger.MarkUnsuitable(ctx, sourceID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %s unsuitable\n", sourceID)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&unitIDs, "unit", "u", nil, "unit IDs to mark used instead of marking the thread unsuitable")

	return cmd
}
