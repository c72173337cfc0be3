package webhook

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/foxseedlab/segscribe/internal/webhook"
)

const webhookTimeout = 30 * time.Second

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) *HTTPSender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

// SendTranscript posts the transcript file as multipart/form-data. The file part
// comes first, followed by the job metadata fields. An empty URL disables delivery.
func (s *HTTPSender) SendTranscript(ctx context.Context, t webhook.Transcript) error {
	if s.webhookURL == "" {
		return nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", t.Filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(t.Body); err != nil {
		return err
	}
	fields := []struct{ name, value string }{
		{"job_id", t.JobID},
		{"source_filename", t.SourceFilename},
		{"segment_count", strconv.Itoa(t.SegmentCount)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
