package main

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"medsys.org/internal/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply pending migrations", func(ctx context.Context, m *migrate.Manager) ([]string, error) {
			return m.Up(ctx)
		}),
		migrateSubcommand("down", "Roll back the latest migration", func(ctx context.Context, m *migrate.Manager) ([]string, error) {
			name, err := m.Down(ctx)
			if err != nil {
				return nil, err
			}
			return []string{name}, nil
		}),
		migrateSubcommand("status", "List applied migrations", func(ctx context.Context, m *migrate.Manager) ([]string, error) {
			return m.Status(ctx)
		}),
		migrateSubcommand("seed", "Apply seed data (built-in roles)", func(ctx context.Context, m *migrate.Manager) ([]string, error) {
			return m.Seed(ctx)
		}),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(context.Context, *migrate.Manager) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := run(ctx, migrate.NewManager(store.DB()))
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", use).Wrap(err)
			}
			w := cmd.OutOrStdout()
			if len(names) == 0 {
				_, err = fmt.Fprintln(w, "nothing to do")
				return err
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(w, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
