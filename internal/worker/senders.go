package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/jimdaga/habit-tracker/internal/streams"
	"github.com/jimdaga/habit-tracker/internal/telegram"
)

// Outcome is what a transport reports for one delivery attempt.
type Outcome struct {
	// Status is DeliveryStatusSent for synchronous transports and
	// DeliveryStatusProcessing when the result arrives later.
	Status   string
	Response []byte
}

// Sender hands a reminder to a messaging transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, delivery *models.Delivery, payload models.ReminderPayload) (Outcome, error)
}

// MessageSender is the part of telegram.Client the Telegram transport needs.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) (*telegram.SendResult, error)
}

// RequestPublisher is the part of streams.Publisher the stream transport needs.
type RequestPublisher interface {
	PublishReminderRequest(ctx context.Context, req streams.ReminderRequest) (string, error)
}

// TelegramSender delivers reminders directly through the Bot API.
type TelegramSender struct {
	client MessageSender
}

func NewTelegramSender(client MessageSender) *TelegramSender {
	return &TelegramSender{client: client}
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(ctx context.Context, _ *models.Delivery, payload models.ReminderPayload) (Outcome, error) {
	result, err := s.client.SendMessage(ctx, payload.Recipient, payload.Text)
	outcome := Outcome{Status: models.DeliveryStatusSent}
	if result != nil {
		outcome.Response = result.Body
	}
	return outcome, err
}

// StreamSender publishes reminders for an external sender and leaves the
// delivery processing until a result comes back on the results stream.
type StreamSender struct {
	publisher RequestPublisher
}

func NewStreamSender(publisher RequestPublisher) *StreamSender {
	return &StreamSender{publisher: publisher}
}

func (s *StreamSender) Name() string { return "stream" }

func (s *StreamSender) Send(ctx context.Context, delivery *models.Delivery, payload models.ReminderPayload) (Outcome, error) {
	msgID, err := s.publisher.PublishReminderRequest(ctx, streams.ReminderRequest{
		DeliveryID: delivery.DeliveryID,
		JobID:      delivery.ReminderJobID,
		Recipient:  payload.Recipient,
		Text:       payload.Text,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to publish reminder request: %w", err)
	}

	response, _ := json.Marshal(map[string]string{"stream_msg_id": msgID})
	return Outcome{Status: models.DeliveryStatusProcessing, Response: response}, nil
}
