package reminders

import (
	"testing"
	"time"

	"github.com/jimdaga/habit-tracker/internal/database"
	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type syncerFixture struct {
	db     *gorm.DB
	syncer *Syncer
	owner  *models.User
	now    time.Time
}

func newSyncerFixture(t *testing.T) *syncerFixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	f := &syncerFixture{
		db:  db,
		now: time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC),
	}
	f.syncer = NewSyncer(catalog, time.UTC).WithClock(func() time.Time { return f.now })

	telegramID := "42"
	f.owner = &models.User{Email: "owner@example.com", Username: "owner", Password: "x", TelegramID: &telegramID, IsActive: true}
	require.NoError(t, db.Create(f.owner).Error)
	return f
}

func (f *syncerFixture) habit(t *testing.T, pleasant bool, at string) *models.Habit {
	t.Helper()
	h := &models.Habit{
		Action:      "run",
		Moment:      models.Moment{Time: models.MustTimeOfDay(at)},
		Periodicity: 1,
		Duration:    60,
		IsPleasant:  pleasant,
		OwnerID:     f.owner.ID,
	}
	require.NoError(t, f.db.Create(&h.Moment).Error)
	h.MomentID = h.Moment.ID
	require.NoError(t, f.db.Omit(clause.Associations).Create(h).Error)
	return h
}

func (f *syncerFixture) jobCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.ReminderJob{}).Count(&n).Error)
	return n
}

func TestReconcile_CreatesJobForUsefulHabit(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, false, "07:00:00")

	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	require.NotNil(t, h.ReminderJobID)

	var job models.ReminderJob
	require.NoError(t, f.db.First(&job, *h.ReminderJobID).Error)
	assert.Equal(t, JobName(h.ID), job.Name)
	assert.Equal(t, TaskSend, job.Task)
	assert.Equal(t, 1, job.IntervalDays)
	assert.True(t, job.Enabled)
	assert.WithinDuration(t, time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC), job.StartTime, 0)
	assert.Equal(t, "42", job.Recipient)
	assert.Contains(t, job.Text, "I will run at 07:00:00.")
	assert.Nil(t, job.LastRunAt)

	var stored models.Habit
	require.NoError(t, f.db.First(&stored, h.ID).Error)
	require.NotNil(t, stored.ReminderJobID)
	assert.Equal(t, job.ID, *stored.ReminderJobID)
}

func TestReconcile_PleasantHabitHasNoJob(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, true, "13:00:00")

	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	assert.Nil(t, h.ReminderJobID)
	assert.Zero(t, f.jobCount(t))
}

func TestReconcile_UpdatesExistingJobInPlace(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, false, "07:00:00")
	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	jobID := *h.ReminderJobID

	ran := f.now.Add(-time.Hour)
	require.NoError(t, f.db.Model(&models.ReminderJob{}).Where("id = ?", jobID).Update("last_run_at", ran).Error)

	f.now = f.now.Add(2 * time.Hour)
	h.Periodicity = 3
	h.Moment.Time = models.MustTimeOfDay("21:15:00")
	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))

	assert.Equal(t, jobID, *h.ReminderJobID)
	assert.EqualValues(t, 1, f.jobCount(t))

	var job models.ReminderJob
	require.NoError(t, f.db.First(&job, jobID).Error)
	assert.Equal(t, JobName(h.ID), job.Name)
	assert.Equal(t, 3, job.IntervalDays)
	assert.WithinDuration(t, time.Date(2026, 10, 16, 21, 15, 0, 0, time.UTC), job.StartTime, 0)
	assert.Nil(t, job.LastRunAt, "run bookkeeping resets on schedule change")
	assert.Contains(t, job.Text, "at 21:15:00")
}

func TestReconcile_TogglePleasant(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, false, "07:00:00")
	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	require.EqualValues(t, 1, f.jobCount(t))

	h.IsPleasant = true
	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	assert.Nil(t, h.ReminderJobID)
	assert.Zero(t, f.jobCount(t))

	var stored models.Habit
	require.NoError(t, f.db.First(&stored, h.ID).Error)
	assert.Nil(t, stored.ReminderJobID)

	h.IsPleasant = false
	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	require.NotNil(t, h.ReminderJobID)
	assert.EqualValues(t, 1, f.jobCount(t))
}

func TestReconcile_RecreatesDanglingJob(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, false, "07:00:00")
	missing := uint(9999)
	h.ReminderJobID = &missing

	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	require.NotNil(t, h.ReminderJobID)
	assert.NotEqual(t, missing, *h.ReminderJobID)
	assert.EqualValues(t, 1, f.jobCount(t))
}

func TestReconcile_OwnerWithoutTelegramID(t *testing.T) {
	f := newSyncerFixture(t)
	f.owner.TelegramID = nil
	h := f.habit(t, false, "07:00:00")

	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))
	var job models.ReminderJob
	require.NoError(t, f.db.First(&job, *h.ReminderJobID).Error)
	assert.Empty(t, job.Recipient)
}

func TestRemove_NoJobIsNoop(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, true, "07:00:00")
	assert.NoError(t, f.syncer.Remove(f.db, h))
}

func TestReaddress_FollowsOwnerTelegramID(t *testing.T) {
	f := newSyncerFixture(t)
	h := f.habit(t, false, "07:00:00")
	require.NoError(t, f.syncer.Reconcile(f.db, h, f.owner))

	var before models.ReminderJob
	require.NoError(t, f.db.First(&before, *h.ReminderJobID).Error)

	newID := "77"
	f.owner.TelegramID = &newID
	require.NoError(t, f.syncer.Readdress(f.db, f.owner))

	var job models.ReminderJob
	require.NoError(t, f.db.First(&job, *h.ReminderJobID).Error)
	assert.Equal(t, "77", job.Recipient)
	assert.WithinDuration(t, before.StartTime, job.StartTime, 0)
	assert.Equal(t, before.IntervalDays, job.IntervalDays)
}
