package events

import (
	"context"
	"time"
)

const (
	TypeJobCompleted = "transcription.completed"
	TypeJobFailed    = "transcription.failed"
)

// JobEvent announces the end of a transcription job.
type JobEvent struct {
	Type              string    `json:"type"`
	JobID             string    `json:"job_id"`
	SourceFilename    string    `json:"source_filename"`
	ResultFilename    string    `json:"result_filename,omitempty"`
	SegmentCount      int       `json:"segment_count"`
	EmptySegmentCount int       `json:"empty_segment_count"`
	DroppedTailMs     int64     `json:"dropped_tail_ms"`
	DurationMs        int64     `json:"duration_ms"`
	Error             string    `json:"error,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishJobEvent(ctx context.Context, e JobEvent) error
}
