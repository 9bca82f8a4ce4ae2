package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/habit-tracker/internal/config"
	"github.com/jimdaga/habit-tracker/internal/logging"
	"gorm.io/gorm"
)

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
func Start(cfg *config.Config, db *gorm.DB, sender Sender) (stop func(), err error) {
	srv, mux, err := newServer(cfg, db, sender)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, db *gorm.DB, sender Sender) (*asynq.Server, *asynq.ServeMux, error) {
	if client == nil {
		return nil, nil, errors.New("asynq client not initialized")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.WorkerConcurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := NewMux(logger, db, NewDispatcher(db, client, cfg.Location(), logger), sender)

	logger.Info("Worker starting",
		"concurrency", cfg.WorkerConcurrency,
		"transport", sender.Name(),
	)
	return srv, mux, nil
}

// NewMux routes reminder tasks to their handlers.
func NewMux(logger *slog.Logger, db *gorm.DB, dispatcher *Dispatcher, sender Sender) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDispatchReminders, handleDispatchReminders(logger, dispatcher))
	mux.HandleFunc(TaskSendReminder, handleSendReminder(logger, db, sender))
	return mux
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry || errors.Is(err, asynq.SkipRetry) {
			logger.Error(
				"Task archived without retry",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
