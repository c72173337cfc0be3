package webhook

import "context"

// Transcript is a finished transcription as delivered to outbound notifiers.
type Transcript struct {
	JobID          string
	SourceFilename string
	Filename       string
	Body           []byte
	SegmentCount   int
}

type Sender interface {
	SendTranscript(ctx context.Context, t Transcript) error
}
