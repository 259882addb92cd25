package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("storefront/messaging")

// TypedEvent is implemented by events that name themselves. The name is sent
// in the event-type header so consumers can skip events they do not handle
// without decoding them.
type TypedEvent interface {
	EventType() string
}

// Producer publishes JSON events to a single topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer writes to topic. Events for one key land on one partition, so a
// consumer sees an order's events in order.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
	}
}

// Publish sends event keyed by key. The caller decides whether a failure
// matters; the reconciler only logs it.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	msg, err := newMessage(key, event)
	if err != nil {
		return err
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(key),
			attribute.String("storefront.event_type", headerValue(msg.Headers, HeaderEventType)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s message: %w", p.topic, err)
	}
	return nil
}

func newMessage(key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{Key: []byte(key), Value: data}
	setHeader(&msg.Headers, HeaderContentType, "application/json")
	if typed, ok := event.(TypedEvent); ok {
		setHeader(&msg.Headers, HeaderEventType, typed.EventType())
	}
	return msg, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
