package reminders

import (
	"time"

	"github.com/jimdaga/habit-tracker/internal/models"
)

// NextRun returns the first firing of job strictly after after. Firings are
// StartTime plus whole multiples of IntervalDays, computed on the wall clock
// of loc so the time of day survives DST changes.
func NextRun(job *models.ReminderJob, after time.Time, loc *time.Location) time.Time {
	interval := job.IntervalDays
	if interval < 1 {
		interval = 1
	}

	start := job.StartTime.In(loc)
	if after.Before(start) {
		return start
	}

	days := int(after.Sub(start).Hours() / 24)
	k := days / interval
	next := start.AddDate(0, 0, k*interval)
	for !next.After(after) {
		k++
		next = start.AddDate(0, 0, k*interval)
	}
	return next
}

// Reference is the instant the next firing is measured from: the last run,
// or when the current schedule took effect.
func Reference(job *models.ReminderJob) time.Time {
	if job.LastRunAt != nil {
		return *job.LastRunAt
	}
	return job.ScheduledAt
}

// Due reports whether job should fire at now.
func Due(job *models.ReminderJob, now time.Time, loc *time.Location) bool {
	if !job.Enabled {
		return false
	}
	return !NextRun(job, Reference(job), loc).After(now)
}
