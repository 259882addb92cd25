package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

// HandlerFunc processes one message payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// ErrPermanent marks a failure that retrying cannot fix, such as an
// undecodable payload. The consumer logs and commits such messages.
var ErrPermanent = errors.New("permanent failure")

type Consumer struct {
	reader    *kafka.Reader
	topic     string
	groupID   string
	eventType string
	logger    *slog.Logger
}

type consumerConfig struct {
	reader    kafka.ReaderConfig
	eventType string
}

type ConsumerOption func(*consumerConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.reader.StartOffset = offset
	}
}

// WithEventType makes the consumer commit, without handling, messages whose
// event-type header names another event. Messages without the header are
// still handled.
func WithEventType(eventType string) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.eventType = eventType
	}
}

func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	cfg := consumerConfig{
		reader: kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer{
		reader:    kafka.NewReader(cfg.reader),
		topic:     topic,
		groupID:   groupID,
		eventType: cfg.eventType,
		logger:    logger,
	}
}

// Consume fetches and handles messages until ctx is done or a handler returns
// a retryable error. A message is committed only after it is handled.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if !c.handles(msg) {
			c.logger.Warn("skipping message", "topic", c.topic, "offset", msg.Offset,
				"event_type", headerValue(msg.Headers, HeaderEventType))
		} else if err := c.processMessage(ctx, msg, handler); err != nil {
			if !errors.Is(err, ErrPermanent) {
				return err
			}
			c.logger.Error("dropping message", "error", err, "topic", c.topic, "offset", msg.Offset, "key", string(msg.Key))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) handles(msg kafka.Message) bool {
	if c.eventType == "" {
		return true
	}
	got := headerValue(msg.Headers, HeaderEventType)
	return got == "" || got == c.eventType
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, handler HandlerFunc) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, NewMessageCarrier(&msg))

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
		),
	)
	defer span.End()

	if err := handler(spanCtx, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
