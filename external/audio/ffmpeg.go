package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/foxseedlab/segscribe/internal/audio"
)

// FFmpegDecoder normalizes any container ffmpeg understands into mono 16kHz PCM16.
type FFmpegDecoder struct {
	ffmpegPath string
}

func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (audio.PCM, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", strconv.Itoa(audio.Channels), "-ar", strconv.Itoa(audio.SampleRate),
		"-f", "s16le", "-acodec", "pcm_s16le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("decoding audio with ffmpeg", "path", path)
	if err := cmd.Run(); err != nil {
		return audio.PCM{}, fmt.Errorf("ffmpeg error: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return audio.PCM{SampleRate: audio.SampleRate, Samples: samplesFromS16LE(stdout.Bytes())}, nil
}

func samplesFromS16LE(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return samples
}
