package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer trivia commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			if migrate && c.Trivia.Store == server.StorePostgres {
				if err := leaderboard.Migrate(cmd.Context(), c.Postgres.DSN()); err != nil {
					return err
				}
			}

			return serve(cmd.Context(), c)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply leaderboard migrations before starting")

	return cmd
}

func serve(ctx context.Context, c server.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	s, err := server.Init(c)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	go s.Start(ctx)

	<-ctx.Done()
	s.Shutdown()

	return nil
}
