package transcriber

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	audioimpl "github.com/foxseedlab/segscribe/external/audio"
	"github.com/foxseedlab/segscribe/internal/audio"
)

// writeTempSegment stores seg as a WAV file in dir. The name carries the timestamp and
// process id; os.CreateTemp adds a random suffix so concurrent segments never collide.
func writeTempSegment(dir string, seg audio.Segment, now time.Time) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(abs, fmt.Sprintf("temp_%d_%d_*.wav", now.Unix(), os.Getpid()))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if err := audioimpl.WriteWAV(f, seg); err != nil {
		_ = f.Close()
		removeTempFile(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		removeTempFile(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

func removeTempFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to remove temp segment file", "error", err, "path", path)
	}
}
