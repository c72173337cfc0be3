package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func silentPCM(durationMs int64) PCM {
	return PCM{SampleRate: SampleRate, Samples: make([]int16, durationMs*SampleRate/1000)}
}

func TestSplit_SegmentCount(t *testing.T) {
	const window = int64(300000)
	cases := []struct {
		name     string
		lengthMs int64
		want     int
		dropped  int64
	}{
		{name: "empty", lengthMs: 0, want: 0},
		{name: "sub-second only", lengthMs: 800, want: 0, dropped: 800},
		{name: "exactly one second is dropped", lengthMs: 1000, want: 0, dropped: 1000},
		{name: "just over one second", lengthMs: 1001, want: 1},
		{name: "exact window", lengthMs: window, want: 1},
		{name: "remainder above threshold", lengthMs: 2*window + 1500, want: 3},
		{name: "remainder at threshold", lengthMs: 2*window + 1000, want: 2, dropped: 1000},
		{name: "remainder below threshold", lengthMs: 3*window + 400, want: 3, dropped: 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments, dropped := Split(silentPCM(tc.lengthMs), DefaultSegmentDuration, DefaultMinSegmentDuration)
			if len(segments) != tc.want {
				t.Fatalf("expected %d segments, got %d", tc.want, len(segments))
			}
			if dropped != tc.dropped {
				t.Fatalf("expected %dms dropped, got %d", tc.dropped, dropped)
			}
			expected := int((tc.lengthMs + window - 1) / window)
			if rem := tc.lengthMs % window; rem != 0 && rem <= 1000 {
				expected--
			}
			if len(segments) != expected {
				t.Fatalf("ceil rule gives %d segments, got %d", expected, len(segments))
			}
		})
	}
}

func TestSplit_BoundsAndContiguity(t *testing.T) {
	pcm := silentPCM(3*300000 + 45000)
	segments, _ := Split(pcm, DefaultSegmentDuration, DefaultMinSegmentDuration)
	var prevEnd int64
	var samples int
	for i, seg := range segments {
		if seg.Index != i {
			t.Fatalf("segment %d has index %d", i, seg.Index)
		}
		if seg.StartMs != prevEnd {
			t.Fatalf("segment %d starts at %d, previous ended at %d", i, seg.StartMs, prevEnd)
		}
		length := seg.EndMs - seg.StartMs
		if length > 300000 {
			t.Fatalf("segment %d is %dms long", i, length)
		}
		if length <= 1000 {
			t.Fatalf("segment %d is only %dms long", i, length)
		}
		if want := int(length) * SampleRate / 1000; len(seg.Samples) != want {
			t.Fatalf("segment %d has %d samples, want %d", i, len(seg.Samples), want)
		}
		prevEnd = seg.EndMs
		samples += len(seg.Samples)
	}
	if samples != len(pcm.Samples) {
		t.Fatalf("segments cover %d samples, input has %d", samples, len(pcm.Samples))
	}
}

func TestSplit_CustomWindow(t *testing.T) {
	segments, dropped := Split(silentPCM(25000), 10*time.Second, 0)
	if len(segments) != 3 || dropped != 0 {
		t.Fatalf("expected 3 segments and nothing dropped, got %d / %d", len(segments), dropped)
	}
	if segments[2].Duration() != 5*time.Second {
		t.Fatalf("unexpected tail duration: %s", segments[2].Duration())
	}
}

type fakeDecoder struct {
	pcm PCM
	err error
}

func (f fakeDecoder) Decode(_ context.Context, _ string) (PCM, error) {
	return f.pcm, f.err
}

func TestSegmenter_Segment(t *testing.T) {
	s := NewSegmenter(fakeDecoder{pcm: silentPCM(600500)}, SegmenterConfig{
		SegmentDuration:    DefaultSegmentDuration,
		MinSegmentDuration: DefaultMinSegmentDuration,
	})
	set, err := s.Segment(context.Background(), "input.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(set.Segments))
	}
	if set.DroppedTailMs != 500 {
		t.Fatalf("expected 500ms dropped, got %d", set.DroppedTailMs)
	}
	if set.TotalMs != 600500 {
		t.Fatalf("unexpected total: %d", set.TotalMs)
	}
}

func TestSegmenter_DecodeError(t *testing.T) {
	decodeErr := errors.New("ffmpeg exited with status 1")
	s := NewSegmenter(fakeDecoder{err: decodeErr}, SegmenterConfig{})
	if _, err := s.Segment(context.Background(), "broken.mp4"); !errors.Is(err, decodeErr) {
		t.Fatalf("expected wrapped decode error, got %v", err)
	}
}

func TestSegmenter_RejectsUnnormalizedAudio(t *testing.T) {
	s := NewSegmenter(fakeDecoder{pcm: PCM{SampleRate: 44100, Samples: make([]int16, 44100)}}, SegmenterConfig{})
	if _, err := s.Segment(context.Background(), "input.wav"); err == nil {
		t.Fatal("expected error for non-16kHz audio")
	}
}
