package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Delivery status constants
const (
	DeliveryStatusPending    = "pending"
	DeliveryStatusProcessing = "processing"
	DeliveryStatusSent       = "sent"
	DeliveryStatusFailed     = "failed"
	DeliveryStatusSkipped    = "skipped"
)

// Delivery tracks a single reminder firing and its outcome.
type Delivery struct {
	gorm.Model
	DeliveryID    string         `gorm:"uniqueIndex;not null"`
	ReminderJobID uint           `gorm:"not null;index"`
	Transport     string         `gorm:"not null"`
	Text          string         `gorm:"type:text"`
	Status        string         `gorm:"not null;default:'pending';index"`
	Response      datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage  string         `gorm:"column:error_message;type:text"`
	StartedAt     *time.Time     `gorm:"column:started_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at"`
}
