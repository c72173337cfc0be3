package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foxseedlab/segscribe/internal/webhook"
)

func testTranscript(body string) webhook.Transcript {
	return webhook.Transcript{
		JobID:          "job-1",
		SourceFilename: "meeting.mp4",
		Filename:       "meeting_transcription.txt",
		Body:           []byte(body),
		SegmentCount:   2,
	}
}

func TestSendTranscript_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendTranscript(context.Background(), testTranscript("hello")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendTranscript_Success(t *testing.T) {
	var gotFilename string
	var gotBody string
	fields := map[string]string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		mediaType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(mediaType, "multipart/form-data") {
			t.Errorf("unexpected content type: %s", mediaType)
		}

		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("failed to create multipart reader: %v", err)
			return
		}
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("failed to read multipart part: %v", err)
			return
		}
		if part.FormName() != "file" {
			t.Errorf("unexpected form name: %s", part.FormName())
		}
		gotFilename = part.FileName()
		content, err := io.ReadAll(part)
		if err != nil {
			t.Errorf("failed to read file body: %v", err)
		}
		gotBody = string(content)
		for {
			p, err := reader.NextPart()
			if err != nil {
				break
			}
			v, _ := io.ReadAll(p)
			fields[p.FormName()] = string(v)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendTranscript(context.Background(), testTranscript("hello world")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if gotFilename != "meeting_transcription.txt" {
		t.Fatalf("unexpected filename: %s", gotFilename)
	}
	if gotBody != "hello world" {
		t.Fatalf("unexpected body: %s", gotBody)
	}
	if fields["job_id"] != "job-1" || fields["source_filename"] != "meeting.mp4" || fields["segment_count"] != "2" {
		t.Fatalf("unexpected metadata fields: %v", fields)
	}
}

func TestSendTranscript_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendTranscript(context.Background(), testTranscript("hello")); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
