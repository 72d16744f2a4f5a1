package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kheller/diagrid/internal/server"
	"github.com/kheller/diagrid/pkg/store"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownTimeout = 10 * time.Second

// newServeCmd creates the serve command, which exposes documents and their
// synchronizer sessions over HTTP.
func newServeCmd(configPath *string) *cobra.Command {
	var listen, backend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diagram documents over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if backend != "" {
				cfg.Store.Backend = backend
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "bind address (overrides config)")
	cmd.Flags().StringVar(&backend, "store", "", "store backend: memory, file, redis, mongo (overrides config)")

	return cmd
}

// runServe builds the configured store, starts the HTTP server, and blocks
// until the context is cancelled or the listener fails.
func runServe(ctx context.Context, cfg *Config) error {
	logger := loggerFromContext(ctx)

	st, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	logger.Infof("Using %s store", cfg.Store.Backend)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(st, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on http://%s", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}

// buildStore constructs the document store selected by the config.
func buildStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "file":
		return store.NewFile(cfg.Dir)
	case "memory":
		return store.NewMemory(), nil
	case "redis":
		return store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "mongo":
		return store.NewMongo(ctx, store.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s (must be 'memory', 'file', 'redis', or 'mongo')", cfg.Backend)
	}
}
