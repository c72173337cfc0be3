package repository

import (
	"context"
	"time"
)

type CreateJobInput struct {
	SourceFilename string
	StartedAt      time.Time
}

type CompleteJobInput struct {
	JobID             string
	ResultFilename    string
	EndedAt           time.Time
	SegmentCount      int
	EmptySegmentCount int
	DroppedTailMs     int64
}

type FailJobInput struct {
	JobID   string
	EndedAt time.Time
	Error   string
}

type InsertSegmentInput struct {
	JobID        string
	SegmentIndex int
	StartMs      int64
	EndMs        int64
	Content      string
	Status       string
	Attempts     int
}

type JobRepository interface {
	CreateJob(ctx context.Context, input CreateJobInput) (*Job, error)
	CompleteJob(ctx context.Context, input CompleteJobInput) error
	FailJob(ctx context.Context, input FailJobInput) error
	// GetJob returns nil without error when no job has the given id.
	GetJob(ctx context.Context, id string) (*Job, error)
}

type SegmentRepository interface {
	InsertSegment(ctx context.Context, input InsertSegmentInput) error
	ListSegmentsByJobID(ctx context.Context, jobID string) ([]JobSegment, error)
}

type Repository interface {
	JobRepository
	SegmentRepository
}
