package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/habit-tracker/internal/auth"
	"github.com/jimdaga/habit-tracker/internal/config"
	"github.com/jimdaga/habit-tracker/internal/database"
	"github.com/jimdaga/habit-tracker/internal/habits"
	"github.com/jimdaga/habit-tracker/internal/logging"
	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/jimdaga/habit-tracker/internal/reminders"
	"github.com/jimdaga/habit-tracker/internal/server"
	"github.com/jimdaga/habit-tracker/internal/streams"
	"github.com/jimdaga/habit-tracker/internal/telegram"
	"github.com/jimdaga/habit-tracker/internal/worker"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			return err
		}
	} else {
		slog.Warn("ENCRYPTION_KEY not set, telegram ids are stored in plain text")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	catalog, err := reminders.LoadCatalog(cfg.TemplatesPath)
	if err != nil {
		return err
	}
	syncer := reminders.NewSyncer(catalog, cfg.Location())

	if cfg.SeedDevData && !cfg.IsProduction() {
		if err := database.SeedDevData(db, syncer); err != nil {
			return err
		}
	}

	var stops []func()
	defer func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}()

	if cfg.RunsWorker() {
		stop, err := startWorker(cfg, db)
		if err != nil {
			return err
		}
		stops = append(stops, stop)
	}

	if !cfg.RunsServer() {
		slog.Info("Worker running, waiting for shutdown signal")
		waitForSignal()
		return nil
	}

	return serve(cfg, db, syncer, logger)
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if !database.IsSQLite(cfg.DatabaseURL) {
		if err := database.RunMigrations(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}
	return db, nil
}

// startWorker starts the task server, the periodic scheduler and, for the
// stream transport, the result consumer. The returned function stops them.
func startWorker(cfg *config.Config, db *gorm.DB) (func(), error) {
	if err := worker.InitClient(cfg.RedisURL); err != nil {
		return nil, err
	}

	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
		_ = worker.CloseClient()
	}

	var sender worker.Sender
	switch cfg.NotifyTransport {
	case config.TransportStream:
		publisher, err := streams.NewPublisher(cfg.RedisURL)
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, func() { _ = publisher.Close() })

		stopConsumer, err := streams.StartResultConsumer(cfg.RedisURL, hostnameOr("go-worker-1"), db)
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, stopConsumer)
		sender = worker.NewStreamSender(publisher)
	default:
		if cfg.TelegramToken == "" && !cfg.TelegramStub {
			slog.Warn("TELEGRAM_TOKEN not set, reminders will fail to send")
		}
		sender = worker.NewTelegramSender(telegram.NewClient(cfg.TelegramBaseURL, cfg.TelegramToken, cfg.TelegramStub))
	}

	stopWorker, err := worker.Start(cfg, db, sender)
	if err != nil {
		stopAll()
		return nil, err
	}
	stops = append(stops, stopWorker)

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		stopAll()
		return nil, err
	}
	stops = append(stops, stopScheduler)

	return stopAll, nil
}

func serve(cfg *config.Config, db *gorm.DB, syncer *reminders.Syncer, logger *slog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	payloads, err := habits.NewPayloadDecoder()
	if err != nil {
		return err
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	router := server.NewRouter(server.RouterConfig{
		Accounts:    auth.NewService(db, tokens, syncer),
		Habits:      habits.NewService(db, syncer),
		Payloads:    payloads,
		Database:    sqlDB,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "mode", cfg.Mode, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func waitForSignal() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func hostnameOr(fallback string) string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return fallback
}
