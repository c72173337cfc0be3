package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/foxseedlab/segscribe/internal/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavFormatPCM = 1
)

// WriteWAV encodes seg as an uncompressed 16-bit PCM WAV stream.
func WriteWAV(w io.WriteSeeker, seg audio.Segment) error {
	sampleRate := seg.SampleRate
	if sampleRate == 0 {
		sampleRate = audio.SampleRate
	}
	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, audio.Channels, wavFormatPCM)
	data := make([]int, len(seg.Samples))
	for i, s := range seg.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: audio.Channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WAVDecoder reads WAV files that are already normalized without spawning ffmpeg.
// Any other WAV layout is handed to fallback.
type WAVDecoder struct {
	fallback audio.Decoder
}

func NewWAVDecoder(fallback audio.Decoder) *WAVDecoder {
	return &WAVDecoder{fallback: fallback}
}

func (d *WAVDecoder) Decode(ctx context.Context, path string) (audio.PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.PCM{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return d.delegate(ctx, path, "not a valid wav file")
	}
	dec.ReadInfo()
	if !isNormalizedWAV(dec) {
		return d.delegate(ctx, path, fmt.Sprintf("%dHz/%dch/%dbit", dec.SampleRate, dec.NumChans, dec.BitDepth))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.PCM{}, fmt.Errorf("read wav pcm: %w", err)
	}
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return audio.PCM{SampleRate: audio.SampleRate, Samples: samples}, nil
}

func (d *WAVDecoder) delegate(ctx context.Context, path, reason string) (audio.PCM, error) {
	if d.fallback == nil {
		return audio.PCM{}, fmt.Errorf("wav needs conversion (%s) and no fallback decoder is configured", reason)
	}
	slog.Debug("wav needs conversion; using fallback decoder", "path", path, "reason", reason)
	return d.fallback.Decode(ctx, path)
}

func isNormalizedWAV(dec *wav.Decoder) bool {
	return dec.WavAudioFormat == wavFormatPCM &&
		dec.SampleRate == audio.SampleRate &&
		dec.NumChans == audio.Channels &&
		dec.BitDepth == wavBitDepth
}

// ExtensionDecoder picks the WAV fast path by file extension and ffmpeg for everything else.
type ExtensionDecoder struct {
	wav    audio.Decoder
	ffmpeg audio.Decoder
}

func NewDecoder(ffmpegPath string) audio.Decoder {
	ff := NewFFmpegDecoder(ffmpegPath)
	return &ExtensionDecoder{wav: NewWAVDecoder(ff), ffmpeg: ff}
}

func (d *ExtensionDecoder) Decode(ctx context.Context, path string) (audio.PCM, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return d.wav.Decode(ctx, path)
	}
	return d.ffmpeg.Decode(ctx, path)
}
