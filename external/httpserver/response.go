package httpserver

import (
	"time"

	"github.com/foxseedlab/segscribe/internal/repository"
)

type jobResponse struct {
	ID                string            `json:"id"`
	SourceFilename    string            `json:"source_filename"`
	ResultFilename    string            `json:"result_filename,omitempty"`
	Status            string            `json:"status"`
	SegmentCount      int               `json:"segment_count"`
	EmptySegmentCount int               `json:"empty_segment_count"`
	DroppedTailMs     int64             `json:"dropped_tail_ms"`
	Error             string            `json:"error,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	EndedAt           *time.Time        `json:"ended_at,omitempty"`
	Segments          []segmentResponse `json:"segments"`
}

type segmentResponse struct {
	Index    int    `json:"index"`
	StartMs  int64  `json:"start_ms"`
	EndMs    int64  `json:"end_ms"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Text     string `json:"text"`
}

func newJobResponse(j *repository.Job, segments []repository.JobSegment) jobResponse {
	resp := jobResponse{
		ID:                j.ID,
		SourceFilename:    j.SourceFilename,
		ResultFilename:    j.ResultFilename,
		Status:            string(j.Status),
		SegmentCount:      j.SegmentCount,
		EmptySegmentCount: j.EmptySegmentCount,
		DroppedTailMs:     j.DroppedTailMs,
		Error:             j.Error,
		StartedAt:         j.StartedAt,
		EndedAt:           j.EndedAt,
		Segments:          make([]segmentResponse, 0, len(segments)),
	}
	for _, s := range segments {
		resp.Segments = append(resp.Segments, segmentResponse{
			Index:    s.SegmentIndex,
			StartMs:  s.StartMs,
			EndMs:    s.EndMs,
			Status:   s.Status,
			Attempts: s.Attempts,
			Text:     s.Content,
		})
	}
	return resp
}
