package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/segscribe/internal/transcriber"
)

// joinTranscript concatenates segment texts in order with a newline, skipping
// empty texts. It also returns how many segments contributed nothing.
func joinTranscript(results []transcriber.Result) (string, int) {
	lines := make([]string, 0, len(results))
	empty := 0
	for _, r := range results {
		if r.Text == "" {
			empty++
			continue
		}
		lines = append(lines, r.Text)
	}
	return strings.Join(lines, "\n"), empty
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
