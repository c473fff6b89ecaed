package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api"
	"github.com/arsenmarkotskyi/tt-event-management/internal/config"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
	"github.com/arsenmarkotskyi/tt-event-management/internal/email"
	"github.com/arsenmarkotskyi/tt-event-management/internal/jobs"
	"github.com/arsenmarkotskyi/tt-event-management/internal/metrics"
	"github.com/arsenmarkotskyi/tt-event-management/internal/storage/postgres"
	"github.com/arsenmarkotskyi/tt-event-management/internal/telemetry"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Run pending database migrations unless --skip-migrations is set
- Start background workers for confirmation emails
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var skipMigrations bool

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not run database migrations on startup")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting event management server")

	metrics.Init(Version, GitCommit, BuildDate)

	tracingShutdown, err := telemetry.InitTracing(context.Background(), cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.Connect(poolCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if !skipMigrations {
		if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = jobs.MigrateRiver(migrateCtx, pool)
		migrateCancel()
		if err != nil {
			return fmt.Errorf("river migrations failed: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	emailService, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email service init failed: %w", err)
	}

	workers, err := jobs.NewWorkers(emailService)
	if err != nil {
		return fmt.Errorf("worker registration failed: %w", err)
	}

	riverLogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	riverClient, err := jobs.NewClient(pool, workers, riverLogger)
	if err != nil {
		return fmt.Errorf("river client init failed: %w", err)
	}

	accountsService := accounts.NewService(repo.Users(), logger)
	eventsService := events.NewService(repo.Events(), logger)
	registrationsService := registrations.NewService(
		repo.Registrations(),
		jobs.NewDispatcher(riverClient),
		cfg.Registration.AllowPast,
		logger,
	)

	handler := api.NewRouter(api.Dependencies{
		Config:        cfg,
		Logger:        logger,
		Pool:          pool,
		Accounts:      accountsService,
		Events:        eventsService,
		Registrations: registrationsService,
	})

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Msg("background job workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
		} else {
			logger.Info().Msg("river workers stopped")
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
