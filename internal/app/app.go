package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/db"
	"flight-mail-review-go/internal/fetcher"
	"flight-mail-review-go/internal/handler"
	"flight-mail-review-go/internal/metrics"
	"flight-mail-review-go/internal/repository"
	"flight-mail-review-go/internal/router"
	"flight-mail-review-go/internal/scheduler"
	"flight-mail-review-go/internal/service/review"
)

// App holds the wired application components
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Metrics   *metrics.Metrics
	Review    *review.Service
	Fetcher   fetcher.EmailFetcher
	Scheduler *scheduler.Scheduler
}

// ConfigureLogging applies the logging section to the standard logrus logger
func ConfigureLogging(cfg config.LoggingConfig) {
	if strings.EqualFold(cfg.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// Load reads and validates configuration and configures logging
func Load(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	ConfigureLogging(cfg.Logging)
	return cfg, nil
}

// New opens the database and wires the review service, mailbox fetcher and
// scheduler. The fetcher and scheduler are nil when no mailbox is configured.
func New(cfg *config.Config) (*App, error) {
	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()
	svc := review.NewService(repository.New(dbConn), m)

	a := &App{
		Config:  cfg,
		DB:      dbConn,
		Metrics: m,
		Review:  svc,
	}

	f, err := fetcher.New(cfg.Mailbox)
	switch {
	case errors.Is(err, fetcher.ErrNoSource):
		logrus.Info("No mailbox source configured, ingestion via API only")
	case err != nil:
		_ = db.Close(dbConn)
		return nil, fmt.Errorf("failed to create mailbox fetcher: %w", err)
	default:
		logrus.Infof("Using %s mailbox source", cfg.Mailbox.Source)
		a.Fetcher = f
		a.Scheduler = scheduler.NewScheduler(cfg.Scheduler, f, svc, m)
	}

	return a, nil
}

// Close releases the fetcher and database
func (a *App) Close() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			logrus.Errorf("Failed to stop scheduler: %v", err)
		}
		a.Scheduler.Wait()
	}
	if a.Fetcher != nil {
		if err := a.Fetcher.Close(); err != nil {
			logrus.Errorf("Failed to close fetcher: %v", err)
		}
	}
	if err := db.Close(a.DB); err != nil {
		logrus.Errorf("Failed to close database: %v", err)
	}
}

// Handler builds the HTTP handler for the app
func (a *App) Handler() http.Handler {
	h := handler.NewHandlers(a.Review, a.Scheduler, a.Metrics, a.Config.Mailbox.Source)
	return router.SetupRouter(h)
}

// Serve runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM arrives
func (a *App) Serve(ctx context.Context) error {
	logrus.Info("Starting Flight Mail Review Service")

	srv := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	if a.Scheduler != nil && a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			logrus.Errorf("Failed to stop scheduler: %v", err)
		}
		a.Scheduler.Wait()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
