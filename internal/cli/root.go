package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/config"
	"github.com/victornm/trivia/internal/server"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFiles   []string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "trivia",
		Short:         "Discord trivia bot with a persistent leaderboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			return config.LoadDotEnv(envFiles...)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to YAML config (env CONFIG_PATH)")
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading config (default .env)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))

	return cmd
}

func loadConfig(path string) (server.Config, error) {
	c := server.DefaultConfig()

	if err := config.Load(path, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
