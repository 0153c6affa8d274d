package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/prudhvinik1/dbsync/internal/api"
	"github.com/prudhvinik1/dbsync/internal/config"
	"github.com/prudhvinik1/dbsync/internal/database"
	"github.com/prudhvinik1/dbsync/internal/repositories"
	"github.com/prudhvinik1/dbsync/internal/scheduler"
	"github.com/prudhvinik1/dbsync/internal/services"
	"github.com/prudhvinik1/dbsync/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync scheduler and the inbound HTTP server",
		Long: `Start the periodic sync cycle and serve /api/receive-sync, /api/path,
/api/sync/status, /health and /metrics until SIGINT or SIGTERM.`,
		RunE: runServe,
	}

	cmd.Flags().Int(config.KeySyncIntervalMS, 5000, "Milliseconds between sync cycles")
	cmd.Flags().Int(config.KeyBatchCount, 2, "Maximum rows per sync cycle")
	cmd.Flags().String(config.KeyRequestURL, "", "Peer endpoint receiving outbound batches")
	cmd.Flags().Bool(config.KeySendEnabled, false, "Forward completed batches to request-url")
	cmd.Flags().Bool(config.KeyGenerateEnabled, false, "Insert synthetic rows after each cycle")
	cmd.Flags().String(config.KeyServerPort, "8080", "Port of the inbound HTTP server")
	cmd.Flags().String(config.KeyRedisURL, "", "Redis URL enabling the cross-instance cycle lock")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting dbsync",
		"version", Version,
		"driver", cfg.DatabaseDriver,
		"interval", cfg.SyncInterval,
		"batch_count", cfg.BatchCount,
		"send_enabled", cfg.SendEnabled,
		"generate_enabled", cfg.GenerateEnabled)

	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, closeStore, err := openRowStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tel, err := telemetry.New(cfg.MetricsEnabled)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			slog.Warn("Failed to shut down telemetry", "error", err)
		}
	}()

	syncMetrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}
	receiveMetrics, err := telemetry.NewReceiveMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create receive metrics: %w", err)
	}

	syncOpts := []services.SyncOption{
		services.WithSyncMetrics(syncMetrics),
		services.WithLockTTL(cfg.LockTTL),
	}
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		}()
		syncOpts = append(syncOpts, services.WithCycleLock(repositories.NewRedisCycleLock(redisClient, "")))
	}

	var tokens *services.TokenService
	if cfg.PeerSecret != "" {
		tokens = services.NewTokenService(cfg.PeerSecret, cfg.PeerTokenExpiry)
	}

	var sender services.Sender
	if cfg.SendEnabled {
		var senderOpts []services.SenderOption
		if tokens != nil {
			senderOpts = append(senderOpts, services.WithTokenGenerator(tokens))
		}
		sender = services.NewHTTPSender(cfg.RequestURL, cfg.SendTimeout, senderOpts...)
	}

	var generator services.Generator
	if cfg.GenerateEnabled {
		generator = services.NewRowGenerator(nil, cfg.GenerateMaxExtra)
	}

	syncSvc := services.NewSyncService(store, sender, generator, cfg.BatchCount, syncOpts...)
	sched := scheduler.New(syncSvc, cfg.SyncInterval)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(
			middleware.RealIP,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
		api.WithStatusProvider(sched),
		api.WithPinger(store),
		api.WithReceiveHandler(api.NewLoggingReceiveHandler(receiveMetrics)),
	}
	if h := tel.Handler(); h != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(h))
	}
	if tokens != nil {
		serverOpts = append(serverOpts, api.WithTokenVerifier(tokens))
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      api.NewServer(serverOpts...),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		if err := sched.Start(ctx); err != nil {
			slog.Error("Sync scheduler failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down dbsync...")
	case err := <-serverErr:
		runErr = fmt.Errorf("failed to serve: %w", err)
		slog.Error("Server failed, shutting down", "error", err)
	}

	if err := sched.Stop(); err != nil {
		slog.Error("Failed to stop sync scheduler", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	slog.Info("dbsync stopped")
	return runErr
}

// openRowStore connects to the configured backend and returns the repository
// with a function releasing its connections.
func openRowStore(ctx context.Context, cfg *config.Config) (repositories.RowRepository, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithApplicationName("dbsync/"+Version))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		return repositories.NewPostgresRowRepository(pool), pool.Close, nil
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slog.Warn("Failed to close sqlite database", "error", err)
			}
		}
		return repositories.NewSQLiteRowRepository(db), closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
