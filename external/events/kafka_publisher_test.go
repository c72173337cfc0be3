package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/segscribe/internal/events"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_LogOnlyWithoutBrokers(t *testing.T) {
	p := NewKafkaPublisher(nil, "transcription.completed")
	if err := p.PublishJobEvent(context.Background(), events.JobEvent{Type: events.TypeJobCompleted, JobID: "j"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "transcription.completed"}
	e := events.JobEvent{
		Type:           events.TypeJobCompleted,
		JobID:          "job-42",
		SourceFilename: "talk.mp4",
		ResultFilename: "talk_transcription.txt",
		SegmentCount:   2,
		OccurredAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := p.PublishJobEvent(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "job-42" {
		t.Fatalf("unexpected key: %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != events.TypeJobCompleted {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}
	var decoded events.JobEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if decoded.ResultFilename != "talk_transcription.txt" || decoded.SegmentCount != 2 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	if err := p.Shutdown(); err != nil || !w.closed {
		t.Fatalf("expected writer to be closed, err=%v", err)
	}
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}, topic: "t"}
	err := p.PublishJobEvent(context.Background(), events.JobEvent{JobID: "j"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}
