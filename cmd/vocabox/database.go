package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/vocabox/internal/bootstrap"
	"github.com/at-ishikawa/vocabox/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the dictionary schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("database.Open() > %w", err)
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.Database.Driver)
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of saved and practice words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), func(ctx context.Context, deps *bootstrap.Dependencies) error {
				count, err := deps.Dictionary.Count(ctx)
				if err != nil {
					return fmt.Errorf("dictionary.Count() > %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved words: %d\npractice words left: %d\n", count, deps.RandomWords.Len())
				return nil
			})
		},
	}
}
