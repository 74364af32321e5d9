package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hackutd/harp-sub000/internal/config"
	"github.com/hackutd/harp-sub000/internal/logger"
	"github.com/hackutd/harp-sub000/internal/server"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/version"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the review API server",
		Long: `Run the review API server in the foreground.

The admin allowlist ([[admins]] in the config file) is reloaded when the
file changes, so tokens can be rotated without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ServerAddr = addr
			}
			if dbPath != "" {
				cfg.Database.Driver = config.DriverSQLite
				cfg.Database.Path = dbPath
			}

			log := logger.New(cfg.Env, verbose)
			defer func() { _ = log.Sync() }()
			log.Infow("starting harp", "version", version.Get().Version, "driver", cfg.Database.Driver)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			watcher := server.NewConfigWatcher(configPath, cfg, log)
			srv := server.NewServer(st, watcher, log)

			sigCh, stopSignals := setupSignalHandler()
			defer stopSignals()

			go func() {
				select {
				case sig := <-sigCh:
					log.Infow("received signal, shutting down", "signal", sig.String())
				case <-ctx.Done():
				}
				cancel()
				if err := srv.Stop(); err != nil {
					log.Errorw("shutdown", "error", err)
				}
			}()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server_addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides the database section)")

	return cmd
}

// openStore opens the backend selected by database.driver.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool := storage.DefaultPgPoolConfig()
		if cfg.Database.MaxConns > 0 {
			pool.MaxConns = int32(cfg.Database.MaxConns)
		}
		st, err := storage.OpenPostgres(ctx, cfg.Database.URL, pool)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return st, nil
	default:
		st, err := storage.Open(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", cfg.DBPath(), err)
		}
		return st, nil
	}
}

// setupSignalHandler delivers SIGINT and SIGTERM until stop is called.
func setupSignalHandler() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}
