package streams

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/habit-tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HandleDeliveryResult returns a handler that writes results onto their
// Delivery records. Results for deliveries already finished are ignored.
func HandleDeliveryResult(db *gorm.DB) func(DeliveryResult) error {
	return func(result DeliveryResult) error {
		var delivery models.Delivery
		if err := db.Where("delivery_id = ?", result.DeliveryID).First(&delivery).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("delivery not found: %s", result.DeliveryID)
			}
			return fmt.Errorf("failed to find delivery: %w", err)
		}

		if delivery.Status == models.DeliveryStatusSent || delivery.Status == models.DeliveryStatusFailed {
			slog.Warn("Duplicate delivery result", "delivery_id", result.DeliveryID, "status", delivery.Status)
			return nil
		}

		updates := map[string]interface{}{
			"completed_at": time.Now(),
		}
		if result.Response != "" {
			updates["response"] = datatypes.JSON(result.Response)
		}

		switch result.Status {
		case ResultStatusSent:
			updates["status"] = models.DeliveryStatusSent
			slog.Info("Reminder delivered", "delivery_id", result.DeliveryID, "job_id", delivery.ReminderJobID)
		case ResultStatusFailed:
			updates["status"] = models.DeliveryStatusFailed
			updates["error_message"] = result.Error
			slog.Error("Reminder delivery failed",
				"delivery_id", result.DeliveryID,
				"job_id", delivery.ReminderJobID,
				"error", result.Error,
			)
		default:
			return fmt.Errorf("unknown status: %s", result.Status)
		}

		if err := db.Model(&delivery).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update delivery: %w", err)
		}
		return nil
	}
}
