package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/habit-tracker/internal/config"
	"github.com/jimdaga/habit-tracker/internal/logging"
)

// StartScheduler starts an Asynq Scheduler that enqueues the reminder
// dispatch tick on cfg.ReminderSchedule. Returns a stop function.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: cfg.Location(),
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(cfg.ReminderSchedule, NewDispatchTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register reminder schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Scheduler started",
		"schedule", cfg.ReminderSchedule,
		"timezone", cfg.Location().String(),
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}

// NewDispatchTask builds the periodic tick. It carries no payload: the
// handler scans every enabled reminder job.
func NewDispatchTask() *asynq.Task {
	return asynq.NewTask(
		TaskDispatchReminders,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Retention(time.Hour),
		asynq.Unique(30*time.Second), // a second scheduler must not double the tick
	)
}
