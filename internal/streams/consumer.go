package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ResultConsumer reads delivery results from Redis Streams.
type ResultConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
}

func NewResultConsumer(redisURL, consumerName string) (*ResultConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s).
	opts.ReadTimeout = 10 * time.Second
	client := redis.NewClient(opts)

	err = client.XGroupCreateMkStream(context.Background(), StreamReminderResults, GroupGoWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &ResultConsumer{
		rdb:          client,
		groupName:    GroupGoWorkers,
		consumerName: consumerName,
	}, nil
}

// ConsumeResults blocks, passing each result to handler until ctx is done.
// Messages whose handler fails stay pending and are not acknowledged.
func (c *ResultConsumer) ConsumeResults(ctx context.Context, handler func(DeliveryResult) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamReminderResults, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("Failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				result, err := decodeResult(message.Values)
				if err != nil {
					slog.Error("Invalid result message", "error", err, "message_id", message.ID)
					continue
				}

				if err := handler(result); err != nil {
					slog.Error("Handler failed", "error", err, "delivery_id", result.DeliveryID)
					continue
				}

				if err := c.rdb.XAck(ctx, StreamReminderResults, c.groupName, message.ID).Err(); err != nil {
					slog.Error("Failed to ACK message", "error", err, "message_id", message.ID)
				}
			}
		}
	}
}

func decodeResult(values map[string]interface{}) (DeliveryResult, error) {
	var result DeliveryResult
	payload, ok := values["payload"].(string)
	if !ok {
		return result, errors.New("missing payload field")
	}
	if v, ok := values["schema_version"].(string); ok && v != SchemaVersionV1 {
		return result, fmt.Errorf("unsupported schema version %q", v)
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if result.DeliveryID == "" {
		return result, errors.New("result has no delivery_id")
	}
	return result, nil
}

func (c *ResultConsumer) Close() error {
	return c.rdb.Close()
}

// StartResultConsumer runs a result consumer in a background goroutine and
// returns a function that stops it.
func StartResultConsumer(redisURL, consumerName string, db *gorm.DB) (stop func(), err error) {
	consumer, err := NewResultConsumer(redisURL, consumerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create result consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.ConsumeResults(ctx, HandleDeliveryResult(db)); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Result consumer stopped with error", "error", err)
		}
	}()

	slog.Info("Result consumer started", "stream", StreamReminderResults, "consumer", consumerName)

	return func() {
		cancel()
		<-done
		_ = consumer.Close()
	}, nil
}
