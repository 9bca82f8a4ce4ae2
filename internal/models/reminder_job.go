package models

import (
	"time"

	"gorm.io/gorm"
)

// ReminderJob is a periodic notification for one habit. It fires every
// IntervalDays days at the time of day of StartTime and carries the
// recipient and text to deliver.
type ReminderJob struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"uniqueIndex;not null"`
	Task         string    `gorm:"not null"`
	IntervalDays int       `gorm:"not null"`
	StartTime    time.Time `gorm:"not null"`
	// ScheduledAt is when the current schedule took effect. Firings before it don't count.
	ScheduledAt   time.Time `gorm:"not null"`
	Recipient     string    `gorm:"type:text"` // stored encrypted
	Text          string    `gorm:"type:text;not null"`
	Enabled       bool      `gorm:"not null"`
	LastRunAt     *time.Time
	TotalRunCount int `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReminderPayload is what a firing hands to the message transport.
type ReminderPayload struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// Payload returns the delivery payload of the job.
func (j *ReminderJob) Payload() ReminderPayload {
	return ReminderPayload{Recipient: j.Recipient, Text: j.Text}
}

func (j *ReminderJob) BeforeSave(tx *gorm.DB) error {
	return sealString(&j.Recipient)
}

func (j *ReminderJob) AfterSave(tx *gorm.DB) error {
	return openString(&j.Recipient)
}

func (j *ReminderJob) AfterFind(tx *gorm.DB) error {
	return openString(&j.Recipient)
}
