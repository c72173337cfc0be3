package transcriber

import (
	"context"
	"errors"

	"github.com/foxseedlab/segscribe/internal/audio"
)

var (
	ErrNetwork          = errors.New("network error")
	ErrRetriesExhausted = errors.New("transcription retries exhausted")
)

type Status int

const (
	// StatusTranscribed means the API accepted the segment; Text may still be empty.
	StatusTranscribed Status = iota
	// StatusExhausted means every attempt was answered with a non-success response.
	// Text is empty and Err wraps ErrRetriesExhausted.
	StatusExhausted
	// StatusFailed means network retries ran out or a non-retryable error occurred.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusTranscribed:
		return "transcribed"
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Result struct {
	Text       string
	Status     Status
	Attempts   int
	StatusCode int
	Err        error
}

func (r Result) OK() bool {
	return r.Status == StatusTranscribed
}

type Transcriber interface {
	Transcribe(ctx context.Context, seg audio.Segment) Result
}
