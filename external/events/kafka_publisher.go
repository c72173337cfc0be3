package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/segscribe/internal/events"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes job events keyed by job id. Without brokers it only logs.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if len(brokers) == 0 {
		slog.Info("kafka disabled, using log-only mode")
		return &KafkaPublisher{topic: topic}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	slog.Info("kafka publisher initialized", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{writer: w, topic: topic}
}

func (p *KafkaPublisher) PublishJobEvent(ctx context.Context, e events.JobEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	slog.Debug("publishing job event", "topic", p.topic, "job_id", e.JobID, "type", e.Type)

	if p.writer == nil {
		return nil
	}
	msg := kafka.Message{
		Key:   []byte(e.JobID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write job event to kafka: %w", err)
	}
	return nil
}

// Shutdown flushes and closes the writer when the injector shuts down.
func (p *KafkaPublisher) Shutdown() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
