package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/and161185/sakhatype/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return errors.New("database.dsn is required for migrate")
			}
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			ctx := cmd.Context()
			switch action {
			case "down":
				return migrate.Down(ctx, cfg.Database.DSN)
			case "status":
				return migrate.Status(ctx, cfg.Database.DSN)
			default:
				return migrate.Up(ctx, cfg.Database.DSN)
			}
		},
	}
	return cmd
}
