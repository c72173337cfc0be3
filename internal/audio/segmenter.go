package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type SegmenterConfig struct {
	SegmentDuration    time.Duration
	MinSegmentDuration time.Duration
}

// SegmentSet is the ordered output of one segmentation run.
type SegmentSet struct {
	Segments      []Segment
	TotalMs       int64
	DroppedTailMs int64
}

type Segmenter struct {
	decoder   Decoder
	window    time.Duration
	minLength time.Duration
}

func NewSegmenter(decoder Decoder, cfg SegmenterConfig) *Segmenter {
	window := cfg.SegmentDuration
	if window <= 0 {
		window = DefaultSegmentDuration
	}
	minLength := cfg.MinSegmentDuration
	if minLength < 0 {
		minLength = DefaultMinSegmentDuration
	}
	return &Segmenter{decoder: decoder, window: window, minLength: minLength}
}

func (s *Segmenter) Segment(ctx context.Context, path string) (SegmentSet, error) {
	pcm, err := s.decoder.Decode(ctx, path)
	if err != nil {
		return SegmentSet{}, fmt.Errorf("decode audio: %w", err)
	}
	if pcm.SampleRate != SampleRate {
		return SegmentSet{}, fmt.Errorf("decoder returned %d Hz audio, want %d Hz", pcm.SampleRate, SampleRate)
	}
	segments, dropped := Split(pcm, s.window, s.minLength)
	set := SegmentSet{
		Segments:      segments,
		TotalMs:       pcm.DurationMs(),
		DroppedTailMs: dropped,
	}
	if dropped > 0 {
		slog.Warn("dropped short trailing audio window", "path", path, "dropped_ms", dropped, "min_segment_ms", s.minLength.Milliseconds())
	}
	slog.Info("audio segmented", "path", path, "total_ms", set.TotalMs, "segments", len(segments))
	return set, nil
}
