package repository

import "time"

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type Job struct {
	ID                string
	SourceFilename    string
	ResultFilename    string
	Status            JobStatus
	SegmentCount      int
	EmptySegmentCount int
	DroppedTailMs     int64
	Error             string
	StartedAt         time.Time
	EndedAt           *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type JobSegment struct {
	ID           string
	JobID        string
	SegmentIndex int
	StartMs      int64
	EndMs        int64
	Content      string
	Status       string
	Attempts     int
	CreatedAt    time.Time
}
