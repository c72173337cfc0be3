package audio

import (
	"context"
	"fmt"
	"time"
)

const (
	SampleRate = 16000
	Channels   = 1

	DefaultSegmentDuration    = 5 * time.Minute
	DefaultMinSegmentDuration = time.Second
)

// PCM is normalized audio: mono, 16-bit signed samples.
type PCM struct {
	SampleRate int
	Samples    []int16
}

func (p PCM) DurationMs() int64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return int64(len(p.Samples)) * 1000 / int64(p.SampleRate)
}

// Segment is a contiguous slice of normalized audio.
type Segment struct {
	Index      int
	StartMs    int64
	EndMs      int64
	SampleRate int
	Samples    []int16
}

func (s Segment) Duration() time.Duration {
	return time.Duration(s.EndMs-s.StartMs) * time.Millisecond
}

func (s Segment) String() string {
	return fmt.Sprintf("segment %d: %dms-%dms", s.Index, s.StartMs, s.EndMs)
}

// Decoder turns a media file into normalized PCM.
type Decoder interface {
	Decode(ctx context.Context, path string) (PCM, error)
}

// Split cuts pcm into consecutive windows of the given length.
// Windows whose length is not greater than minLength are discarded; only the
// trailing window can be that short, and its length is returned as droppedTailMs.
func Split(pcm PCM, window, minLength time.Duration) (segments []Segment, droppedTailMs int64) {
	windowMs := window.Milliseconds()
	minMs := minLength.Milliseconds()
	totalMs := pcm.DurationMs()
	if windowMs <= 0 || totalMs == 0 {
		return nil, 0
	}

	for start := int64(0); start < totalMs; start += windowMs {
		end := min(start+windowMs, totalMs)
		if end-start <= minMs {
			droppedTailMs += end - start
			continue
		}
		lo := sampleOffset(start, pcm.SampleRate)
		hi := sampleOffset(end, pcm.SampleRate)
		if end == totalMs {
			hi = len(pcm.Samples)
		}
		segments = append(segments, Segment{
			Index:      len(segments),
			StartMs:    start,
			EndMs:      end,
			SampleRate: pcm.SampleRate,
			Samples:    pcm.Samples[lo:hi],
		})
	}
	return segments, droppedTailMs
}

func sampleOffset(ms int64, sampleRate int) int {
	return int(ms * int64(sampleRate) / 1000)
}
