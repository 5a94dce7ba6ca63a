// Package cli wires the adapters into cobra commands.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyforge-labs/storyforge-core/internal/config"
)

var version = "dev"

// rootState carries flags and loaded configuration between the root command
// and its subcommands.
type rootState struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the storyforge-core command tree.
func NewRootCommand() *cobra.Command {
	state := &rootState{}

	rootCmd := &cobra.Command{
		Use:   "storyforge-core",
		Short: "Turns discussion threads into narrated short-form videos",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			state.logger = newLogger(state.logLevel)
			slog.SetDefault(state.logger)

			cfg, err := config.Load(state.configPath)
			if err != nil {
				return err
			}
			state.cfg = cfg
			return nil
		},
	}
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&state.configPath, "config", "c", "storyforge.toml", "config file path")
	rootCmd.PersistentFlags().StringVar(&state.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewProduceCommand(state))
	rootCmd.AddCommand(NewWorkerCommand(state))
	rootCmd.AddCommand(NewServeCommand(state))
	rootCmd.AddCommand(NewLedgerCommand(state))

	return rootCmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
