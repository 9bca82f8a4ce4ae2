package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/habit-tracker/internal/reminders"
)

// Task type constants
const (
	TaskDispatchReminders = "reminder:dispatch"
	TaskSendReminder      = reminders.TaskSend
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client used to enqueue reminder
// sends. Must be called before the worker starts.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}
	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// Enqueuer is the part of asynq.Client the dispatcher needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type sendReminderPayload struct {
	JobID uint `json:"job_id"`
}

// NewSendReminderTask builds the task for one firing of job at slot. The task
// id is derived from job and slot so a firing is enqueued at most once.
// Sends are never retried.
func NewSendReminderTask(jobID uint, slot time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(sendReminderPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskSendReminder,
		payload,
		asynq.TaskID(fmt.Sprintf("%s:%d:%d", TaskSendReminder, jobID, slot.Unix())),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}
