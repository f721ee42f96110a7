package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"medsys.org/internal/config"
	"medsys.org/internal/obs"
	"medsys.org/internal/store/pg"
)

// NewRootCmd creates the medsysd command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "medsysd",
		Short:         "medsys identity, authorization and records service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewCreateUserCmd())
	return cmd
}

// loadConfig resolves settings from --config, flags and the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return config.Load(path, cmd.Flags())
}

func newLogger(cfg config.Config) *slog.Logger {
	return obs.SetupLoggerLevel(cfg.Service.Name, version, cfg.Log.Format, obs.ParseLevel(cfg.Log.Level), os.Stderr)
}

// openStore connects to PostgreSQL and checks the connection.
func openStore(ctx context.Context, cfg config.Config) (*pg.Store, error) {
	if cfg.Postgres.DSN == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("postgres dsn is required (flag --postgres.dsn or %s)", config.EnvPGDSN)
	}
	store, err := pg.Open(cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").Wrapf(err, "ping postgres")
	}
	return store, nil
}
