package models

import (
	"time"
)

// Periodicity and duration bounds.
const (
	MinPeriodicity     = 1
	MaxPeriodicity     = 7
	DefaultPeriodicity = 1
	MinDuration        = 1
	MaxDuration        = 120
	DefaultDuration    = 60
)

// Moment is the time of day a habit is performed, with an optional label
// such as "after lunch". Each moment belongs to exactly one habit.
type Moment struct {
	ID    uint      `gorm:"primaryKey"`
	Title *string   `gorm:"size:255"`
	Time  TimeOfDay `gorm:"type:time;not null"`
}

// Habit is a tracked recurring behavior.
//
// A pleasant habit is a terminal reward: it carries neither an award nor a
// related habit. A useful habit may be rewarded by either an award or a link
// to a pleasant habit, but not both.
type Habit struct {
	ID             uint    `gorm:"primaryKey"`
	Action         string  `gorm:"size:500;not null"`
	Place          *string `gorm:"size:255"`
	MomentID       uint    `gorm:"not null;uniqueIndex"`
	Moment         Moment  `gorm:"constraint:OnDelete:CASCADE;"`
	Periodicity    int     `gorm:"not null"`
	Duration       int     `gorm:"not null"`
	IsPleasant     bool    `gorm:"not null;index"`
	RelatedHabitID *uint   `gorm:"index"`
	RelatedHabit   *Habit  `gorm:"constraint:OnDelete:SET NULL;"`
	Award          *string `gorm:"type:text"`
	OwnerID        uint    `gorm:"not null;index"`
	Owner          User    `gorm:"constraint:OnDelete:CASCADE;"`
	IsPublic       bool    `gorm:"not null;index"`

	// ReminderJobID links the habit to its periodic reminder, if any.
	ReminderJobID *uint        `gorm:"uniqueIndex"`
	ReminderJob   *ReminderJob `gorm:"constraint:OnDelete:SET NULL;"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAward reports whether a non-blank award is set.
func (h *Habit) HasAward() bool {
	return h.Award != nil && *h.Award != ""
}

// HasRelatedHabit reports whether a related habit is referenced.
func (h *Habit) HasRelatedHabit() bool {
	return h.RelatedHabitID != nil
}
