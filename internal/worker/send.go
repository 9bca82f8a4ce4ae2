package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jimdaga/habit-tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// handleSendReminder delivers one firing of a reminder job and records it
// as a Delivery. Failures are recorded and never retried.
func handleSendReminder(logger *slog.Logger, db *gorm.DB, sender Sender) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := decodeSendPayload(task)
		if err != nil {
			return err
		}

		var job models.ReminderJob
		if err := db.WithContext(ctx).First(&job, payload.JobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The habit was deleted or turned pleasant after dispatch.
				logger.Info("Reminder job gone, skipping", "job_id", payload.JobID)
				return nil
			}
			return fmt.Errorf("failed to fetch reminder job: %w", err)
		}
		if !job.Enabled {
			logger.Info("Reminder job disabled, skipping", "job_id", job.ID)
			return nil
		}

		now := time.Now()
		delivery := models.Delivery{
			DeliveryID:    uuid.New().String(),
			ReminderJobID: job.ID,
			Transport:     sender.Name(),
			Text:          job.Text,
			Status:        models.DeliveryStatusPending,
			StartedAt:     &now,
		}
		if err := db.WithContext(ctx).Create(&delivery).Error; err != nil {
			return fmt.Errorf("failed to create delivery record: %w", err)
		}

		logger.Info(
			"Processing reminder:send task",
			"job_id", job.ID,
			"delivery_id", delivery.DeliveryID,
			"transport", sender.Name(),
		)

		if job.Recipient == "" {
			updateDelivery(ctx, logger, db, &delivery, map[string]interface{}{
				"status":        models.DeliveryStatusSkipped,
				"error_message": "owner has no telegram id",
				"completed_at":  time.Now(),
			})
			logger.Info("Reminder skipped, no recipient", "job_id", job.ID, "delivery_id", delivery.DeliveryID)
			return nil
		}

		updateDelivery(ctx, logger, db, &delivery, map[string]interface{}{"status": models.DeliveryStatusProcessing})

		outcome, err := sender.Send(ctx, &delivery, job.Payload())
		if err != nil {
			updates := map[string]interface{}{
				"status":        models.DeliveryStatusFailed,
				"error_message": err.Error(),
				"completed_at":  time.Now(),
			}
			if len(outcome.Response) > 0 {
				updates["response"] = datatypes.JSON(outcome.Response)
			}
			updateDelivery(ctx, logger, db, &delivery, updates)

			logger.Error(
				"Reminder delivery failed",
				"job_id", job.ID,
				"delivery_id", delivery.DeliveryID,
				"error", err.Error(),
			)
			return fmt.Errorf("reminder delivery failed: %v: %w", err, asynq.SkipRetry)
		}

		updates := map[string]interface{}{"status": outcome.Status}
		if len(outcome.Response) > 0 {
			updates["response"] = datatypes.JSON(outcome.Response)
		}
		if outcome.Status == models.DeliveryStatusSent {
			updates["completed_at"] = time.Now()
		}
		if err := db.WithContext(ctx).Model(&delivery).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update delivery: %v: %w", err, asynq.SkipRetry)
		}

		logger.Info(
			"Reminder handed to transport",
			"job_id", job.ID,
			"delivery_id", delivery.DeliveryID,
			"status", outcome.Status,
		)
		return nil
	}
}

// updateDelivery writes a status change. A failed write is logged and does
// not fail the task.
func updateDelivery(ctx context.Context, logger *slog.Logger, db *gorm.DB, delivery *models.Delivery, updates map[string]interface{}) {
	if err := db.WithContext(ctx).Model(delivery).Updates(updates).Error; err != nil {
		logger.Error(
			"Failed to update delivery",
			"delivery_id", delivery.DeliveryID,
			"status", updates["status"],
			"error", err,
		)
	}
}
