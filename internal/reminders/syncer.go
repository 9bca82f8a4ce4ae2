// Package reminders keeps each useful habit's periodic reminder job in step
// with the habit and decides when jobs are due.
package reminders

import (
	"errors"
	"fmt"
	"time"

	"github.com/jimdaga/habit-tracker/internal/models"
	"gorm.io/gorm"
)

// TaskSend is the task type a reminder job fires.
const TaskSend = "reminder:send"

// JobName is the stable name of the reminder job for a habit.
func JobName(habitID uint) string {
	return fmt.Sprintf("habit-reminder-%d", habitID)
}

// Syncer creates, updates and removes reminder jobs as habits change.
type Syncer struct {
	catalog  *Catalog
	location *time.Location
	now      func() time.Time
}

// NewSyncer returns a Syncer that computes start times in location.
func NewSyncer(catalog *Catalog, location *time.Location) *Syncer {
	if location == nil {
		location = time.UTC
	}
	return &Syncer{catalog: catalog, location: location, now: time.Now}
}

// WithClock replaces the time source.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Reconcile brings the habit's job in line with the habit:
//
//   - pleasant habit with a job: the job is deleted
//   - useful habit without a job: a job is created and linked
//   - useful habit with a job: schedule and payload are rewritten, run bookkeeping reset
//
// habit.Moment must be loaded. tx should be the caller's transaction.
func (s *Syncer) Reconcile(tx *gorm.DB, habit *models.Habit, owner *models.User) error {
	switch {
	case habit.IsPleasant && habit.ReminderJobID != nil:
		return s.Remove(tx, habit)
	case habit.IsPleasant:
		return nil
	case habit.ReminderJobID == nil:
		return s.create(tx, habit, owner)
	default:
		return s.update(tx, habit, owner)
	}
}

// Remove deletes the habit's job, if any, and clears the link.
func (s *Syncer) Remove(tx *gorm.DB, habit *models.Habit) error {
	if habit.ReminderJobID == nil {
		return nil
	}
	jobID := *habit.ReminderJobID

	if err := tx.Model(&models.Habit{}).Where("id = ?", habit.ID).Update("reminder_job_id", nil).Error; err != nil {
		return fmt.Errorf("failed to unlink reminder job: %w", err)
	}
	if err := tx.Delete(&models.ReminderJob{}, jobID).Error; err != nil {
		return fmt.Errorf("failed to delete reminder job: %w", err)
	}

	habit.ReminderJobID = nil
	habit.ReminderJob = nil
	return nil
}

// Readdress points every reminder job of ownerID's habits at the owner's
// current messaging id. Schedules are left untouched.
func (s *Syncer) Readdress(tx *gorm.DB, owner *models.User) error {
	var jobs []models.ReminderJob
	err := tx.Joins("JOIN habits ON habits.reminder_job_id = reminder_jobs.id").
		Where("habits.owner_id = ?", owner.ID).
		Find(&jobs).Error
	if err != nil {
		return fmt.Errorf("failed to load reminder jobs: %w", err)
	}

	for i := range jobs {
		jobs[i].Recipient = owner.MessagingID()
		if err := tx.Save(&jobs[i]).Error; err != nil {
			return fmt.Errorf("failed to readdress reminder job %d: %w", jobs[i].ID, err)
		}
	}
	return nil
}

func (s *Syncer) create(tx *gorm.DB, habit *models.Habit, owner *models.User) error {
	var job models.ReminderJob
	err := tx.Where("name = ?", JobName(habit.ID)).First(&job).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up reminder job: %w", err)
	}

	job.Name = JobName(habit.ID)
	job.Task = TaskSend
	job.Enabled = true
	if err := s.apply(&job, habit, owner); err != nil {
		return err
	}
	if err := tx.Save(&job).Error; err != nil {
		return fmt.Errorf("failed to save reminder job: %w", err)
	}

	if err := tx.Model(&models.Habit{}).Where("id = ?", habit.ID).Update("reminder_job_id", job.ID).Error; err != nil {
		return fmt.Errorf("failed to link reminder job: %w", err)
	}

	habit.ReminderJobID = &job.ID
	habit.ReminderJob = &job
	return nil
}

func (s *Syncer) update(tx *gorm.DB, habit *models.Habit, owner *models.User) error {
	var job models.ReminderJob
	if err := tx.First(&job, *habit.ReminderJobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			habit.ReminderJobID = nil
			return s.create(tx, habit, owner)
		}
		return fmt.Errorf("failed to load reminder job: %w", err)
	}

	if err := s.apply(&job, habit, owner); err != nil {
		return err
	}
	if err := tx.Save(&job).Error; err != nil {
		return fmt.Errorf("failed to update reminder job: %w", err)
	}

	habit.ReminderJob = &job
	return nil
}

// apply writes schedule and payload derived from the current habit state.
func (s *Syncer) apply(job *models.ReminderJob, habit *models.Habit, owner *models.User) error {
	text, err := s.catalog.Render(habit)
	if err != nil {
		return err
	}

	now := s.now().In(s.location)
	job.IntervalDays = habit.Periodicity
	job.StartTime = habit.Moment.Time.On(now)
	job.ScheduledAt = now
	job.Recipient = owner.MessagingID()
	job.Text = text
	job.LastRunAt = nil
	return nil
}
