package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries bounds handler attempts before a message is committed
// and skipped.
const maxHandlerRetries = 3

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

// Consumer reads events from one or more topics in a consumer group.
type Consumer struct {
	reader    MessageReader
	logger    *slog.Logger
	handler   Handler
	backoff   time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a group consumer over cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, handler, logger)
}

// NewConsumerWithReader creates a consumer over any MessageReader.
func NewConsumerWithReader(r MessageReader, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{reader: r, logger: logger, handler: handler, backoff: 100 * time.Millisecond}
}

// Start consumes until ctx is canceled. Undecodable messages are committed
// and skipped; handler failures are retried with linear backoff and then
// skipped.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping")
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.process(ctx, msg); err != nil && ctx.Err() != nil {
			return c.Close()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("skipping undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return nil
	}

	ctx = ExtractTraceContext(ctx, msg)

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			return nil
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}

	c.logger.ErrorContext(ctx, "handler failed after retries, skipping message",
		slog.String("event_type", event.EventType),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("handle %s: %w", event.EventType, lastErr)
}

// Close closes the reader once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
