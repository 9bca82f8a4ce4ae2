package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/jimdaga/habit-tracker/internal/reminders"
	"gorm.io/gorm"
)

// Dispatcher finds due reminder jobs and enqueues one send task per firing.
type Dispatcher struct {
	db       *gorm.DB
	enqueuer Enqueuer
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(db *gorm.DB, enqueuer Enqueuer, location *time.Location, logger *slog.Logger) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{db: db, enqueuer: enqueuer, location: location, logger: logger, now: time.Now}
}

// DispatchDue enqueues every due job and records the run on it. It returns
// the number of firings enqueued. A missed backlog produces one firing.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	var jobs []models.ReminderJob
	if err := d.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&jobs).Error; err != nil {
		return 0, fmt.Errorf("failed to load reminder jobs: %w", err)
	}

	now := d.now()
	dispatched := 0
	for i := range jobs {
		job := &jobs[i]
		if !reminders.Due(job, now, d.location) {
			continue
		}

		slot := reminders.NextRun(job, reminders.Reference(job), d.location)
		task, err := NewSendReminderTask(job.ID, slot)
		if err != nil {
			return dispatched, err
		}

		if _, err := d.enqueuer.Enqueue(task); err != nil {
			if !errors.Is(err, asynq.ErrTaskIDConflict) && !errors.Is(err, asynq.ErrDuplicateTask) {
				d.logger.Error("Failed to enqueue reminder", "job_id", job.ID, "error", err)
				continue
			}
			d.logger.Debug("Reminder already enqueued", "job_id", job.ID, "slot", slot)
		}

		err = d.db.WithContext(ctx).Model(&models.ReminderJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"last_run_at":     now,
			"total_run_count": gorm.Expr("total_run_count + 1"),
		}).Error
		if err != nil {
			return dispatched, fmt.Errorf("failed to record run of job %d: %w", job.ID, err)
		}

		d.logger.Info("Reminder dispatched", "job_id", job.ID, "job_name", job.Name, "slot", slot)
		dispatched++
	}
	return dispatched, nil
}

// handleDispatchReminders processes the periodic tick.
func handleDispatchReminders(logger *slog.Logger, dispatcher *Dispatcher) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := dispatcher.DispatchDue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("Processed reminder:dispatch task", "dispatched", n)
		}
		return nil
	}
}

func decodeSendPayload(task *asynq.Task) (sendReminderPayload, error) {
	var payload sendReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.JobID == 0 {
		return payload, fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
	}
	return payload, nil
}
