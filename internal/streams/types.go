// Package streams hands reminder deliveries to an external sender over
// Redis Streams and records the results it reports back.
package streams

// Stream names
const (
	StreamReminderRequests = "reminders:requests"
	StreamReminderResults  = "reminders:results"
)

// Consumer groups
const (
	GroupSenders   = "reminder-senders" // external sender side
	GroupGoWorkers = "go-workers"
)

const SchemaVersionV1 = "v1"

// Result statuses reported by the external sender.
const (
	ResultStatusSent   = "sent"
	ResultStatusFailed = "failed"
)

// ReminderRequest asks the external sender to deliver one reminder.
type ReminderRequest struct {
	DeliveryID string `json:"delivery_id"`
	JobID      uint   `json:"job_id"`
	Recipient  string `json:"recipient"`
	Text       string `json:"text"`
}

// DeliveryResult reports the outcome of a ReminderRequest.
type DeliveryResult struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`             // sent/failed
	Response   string `json:"response,omitempty"` // raw transport response, JSON
	Error      string `json:"error,omitempty"`
}
