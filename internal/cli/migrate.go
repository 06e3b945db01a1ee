package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victornm/trivia/internal/leaderboard"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the leaderboard table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			if c.Postgres.Addr == "" {
				return fmt.Errorf("migrate: postgres addr not configured")
			}

			return leaderboard.Migrate(cmd.Context(), c.Postgres.DSN())
		},
	}
}
