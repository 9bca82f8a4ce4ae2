package reminders

import (
	"testing"
	"time"

	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNextRun(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 10, 7, 0, 0, 0, loc)

	tests := []struct {
		name     string
		interval int
		after    time.Time
		want     time.Time
	}{
		{"before start", 1, start.Add(-3 * time.Hour), start},
		{"exactly at start is excluded", 1, start, start.AddDate(0, 0, 1)},
		{"later same day", 1, start.Add(3 * time.Hour), start.AddDate(0, 0, 1)},
		{"every three days", 3, start.Add(25 * time.Hour), start.AddDate(0, 0, 3)},
		{"weekly far in future", 7, start.AddDate(0, 0, 20), start.AddDate(0, 0, 21)},
		{"zero interval treated as daily", 0, start.Add(time.Minute), start.AddDate(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &models.ReminderJob{StartTime: start, IntervalDays: tt.interval}
			assert.WithinDuration(t, tt.want, NextRun(job, tt.after, loc), 0)
		})
	}
}

func TestNextRun_KeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	start := time.Date(2026, 3, 28, 7, 0, 0, 0, loc)
	job := &models.ReminderJob{StartTime: start, IntervalDays: 1}

	next := NextRun(job, start, loc)
	assert.Equal(t, 7, next.Hour())
	assert.Equal(t, 29, next.Day())
}

func TestDue(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 10, 7, 0, 0, 0, loc)

	t.Run("created after today's slot waits for tomorrow", func(t *testing.T) {
		job := &models.ReminderJob{Enabled: true, StartTime: start, IntervalDays: 1, ScheduledAt: start.Add(3 * time.Hour)}
		assert.False(t, Due(job, start.Add(4*time.Hour), loc))
		assert.True(t, Due(job, start.AddDate(0, 0, 1), loc))
	})

	t.Run("created before today's slot fires today", func(t *testing.T) {
		job := &models.ReminderJob{Enabled: true, StartTime: start, IntervalDays: 1, ScheduledAt: start.Add(-time.Hour)}
		assert.False(t, Due(job, start.Add(-time.Minute), loc))
		assert.True(t, Due(job, start.Add(30*time.Second), loc))
	})

	t.Run("last run pushes to next interval", func(t *testing.T) {
		lastRun := start.Add(30 * time.Second)
		job := &models.ReminderJob{Enabled: true, StartTime: start, IntervalDays: 2, ScheduledAt: start.Add(-time.Hour), LastRunAt: &lastRun}
		assert.False(t, Due(job, start.AddDate(0, 0, 1), loc))
		assert.True(t, Due(job, start.AddDate(0, 0, 2), loc))
	})

	t.Run("missed firings collapse into one", func(t *testing.T) {
		lastRun := start.Add(30 * time.Second)
		job := &models.ReminderJob{Enabled: true, StartTime: start, IntervalDays: 1, ScheduledAt: start.Add(-time.Hour), LastRunAt: &lastRun}
		now := start.AddDate(0, 0, 5).Add(2 * time.Hour)
		assert.True(t, Due(job, now, loc))

		job.LastRunAt = &now
		assert.False(t, Due(job, now.Add(time.Hour), loc))
	})

	t.Run("disabled never due", func(t *testing.T) {
		job := &models.ReminderJob{Enabled: false, StartTime: start, IntervalDays: 1, ScheduledAt: start.Add(-time.Hour)}
		assert.False(t, Due(job, start.AddDate(0, 0, 3), loc))
	})
}
