package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/metrics"
	"github.com/foxseedlab/segscribe/internal/transcriber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func testPolicy(rec *sleepRecorder, maxRetries int) transcriber.RetryPolicy {
	p := transcriber.DefaultRetryPolicy()
	p.MaxRetries = maxRetries
	p.Sleep = rec.sleep
	return p
}

func testSegment() audio.Segment {
	return audio.Segment{Index: 0, StartMs: 0, EndMs: 100, SampleRate: audio.SampleRate, Samples: make([]int16, 1600)}
}

func newTestHTTPTranscriber(t *testing.T, endpoint string, rec *sleepRecorder, maxRetries int) (*HTTPTranscriber, string) {
	t.Helper()
	dir := t.TempDir()
	return NewHTTPTranscriber(HTTPConfig{
		Endpoint: endpoint,
		Token:    "test-token",
		TempDir:  dir,
		Policy:   testPolicy(rec, maxRetries),
	}), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp files to be removed, found %d", len(entries))
	}
}

func TestHTTPTranscriber_SendsMultipartRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			return
		}
		if got := r.FormValue("model"); got != DefaultModel {
			t.Errorf("unexpected model: %q", got)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer f.Close()
		if header.Filename != "audio.wav" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		if got := header.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("unexpected part content type: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	tr, dir := newTestHTTPTranscriber(t, srv.URL, rec, 5)
	res := tr.Transcribe(context.Background(), testSegment())

	if !res.OK() || res.Text != "hello world" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", calls.Load())
	}
	if !slices.Equal(rec.waits, []time.Duration{time.Second}) {
		t.Fatalf("unexpected waits: %v", rec.waits)
	}
	assertDirEmpty(t, dir)
}

func TestHTTPTranscriber_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"text":"after wait"}`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	tr, dir := newTestHTTPTranscriber(t, srv.URL, rec, 5)
	res := tr.Transcribe(context.Background(), testSegment())

	if !res.OK() || res.Text != "after wait" {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := []time.Duration{time.Second, 7 * time.Second, time.Second}
	if !slices.Equal(rec.waits, want) {
		t.Fatalf("expected waits %v, got %v", want, rec.waits)
	}
	assertDirEmpty(t, dir)
}

func TestHTTPTranscriber_ExhaustsOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	tr, dir := newTestHTTPTranscriber(t, srv.URL, rec, 3)
	res := tr.Transcribe(context.Background(), testSegment())

	if res.Status != transcriber.StatusExhausted || res.Text != "" {
		t.Fatalf("expected exhausted result, got %+v", res)
	}
	if !errors.Is(res.Err, transcriber.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", res.Err)
	}
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected last status 500, got %d", res.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
	want := []time.Duration{time.Second, 5 * time.Second, time.Second, 10 * time.Second, time.Second, 15 * time.Second}
	if !slices.Equal(rec.waits, want) {
		t.Fatalf("expected waits %v, got %v", want, rec.waits)
	}
	assertDirEmpty(t, dir)
}

func TestHTTPTranscriber_FailsAfterNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	rec := &sleepRecorder{}
	tr, dir := newTestHTTPTranscriber(t, endpoint, rec, 2)
	res := tr.Transcribe(context.Background(), testSegment())

	if res.Status != transcriber.StatusFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if !errors.Is(res.Err, transcriber.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", res.Err)
	}
	want := []time.Duration{time.Second, 5 * time.Second, time.Second}
	if !slices.Equal(rec.waits, want) {
		t.Fatalf("expected waits %v, got %v", want, rec.waits)
	}
	assertDirEmpty(t, dir)
}

func TestHTTPTranscriber_UndecodableBodyIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	tr, dir := newTestHTTPTranscriber(t, srv.URL, rec, 5)
	res := tr.Transcribe(context.Background(), testSegment())

	if res.Status != transcriber.StatusFailed {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if !strings.Contains(res.Err.Error(), "decode transcription response") {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retry, got %d requests", calls.Load())
	}
	assertDirEmpty(t, dir)
}

// newStallingServer answers 200 with a partial body and then stops sending until
// the test ends.
func newStallingServer(t *testing.T, partial string) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(partial))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func transcribeWithDeadline(t *testing.T, tr transcriber.Transcriber) transcriber.Result {
	t.Helper()
	done := make(chan transcriber.Result, 1)
	go func() { done <- tr.Transcribe(context.Background(), testSegment()) }()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("Transcribe did not return after the read timeout")
		return transcriber.Result{}
	}
}

func TestHTTPTranscriber_ReadTimeoutBoundsResponseBody(t *testing.T) {
	srv := newStallingServer(t, `{"text":`)

	rec := &sleepRecorder{}
	dir := t.TempDir()
	tr := NewHTTPTranscriber(HTTPConfig{
		Endpoint:    srv.URL,
		Token:       "test-token",
		ReadTimeout: 200 * time.Millisecond,
		TempDir:     dir,
		Policy:      testPolicy(rec, 1),
	})
	res := transcribeWithDeadline(t, tr)

	if res.Status != transcriber.StatusFailed || !errors.Is(res.Err, transcriber.ErrNetwork) {
		t.Fatalf("expected network failure, got %+v", res)
	}
	assertDirEmpty(t, dir)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "12", want: 12 * time.Second},
		{in: " 3 ", want: 3 * time.Second},
		{in: "", want: 0},
		{in: "-4", want: 0},
		{in: "Wed, 21 Oct 2015 07:28:00 GMT", want: 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWriteTempSegment_NamesFileWithTimeAndPid(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1700000000, 0)
	path, err := writeTempSegment(dir, testSegment(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer removeTempFile(path)

	name := path[strings.LastIndex(path, string(os.PathSeparator))+1:]
	prefix := "temp_1700000000_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".wav") {
		t.Fatalf("unexpected temp name: %s", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("temp file missing: %v", err)
	}
	if info.Size() <= 44 {
		t.Fatalf("expected wav payload, got %d bytes", info.Size())
	}
}

func TestNewRetryPolicy_RecordsBackoffMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := NewRetryPolicy(4, m)
	p.OnBackoff(transcriber.OutcomeRateLimited, 1, 30*time.Second)
	p.OnBackoff(transcriber.OutcomeRateLimited, 2, 10*time.Second)

	label := transcriber.OutcomeRateLimited.String()
	if got := testutil.ToFloat64(m.TranscriptionAttempts.WithLabelValues(label)); got != 2 {
		t.Fatalf("expected 2 attempts recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.BackoffSeconds.WithLabelValues(label)); got != 40 {
		t.Fatalf("expected 40 backoff seconds, got %v", got)
	}
	if p.MaxRetries != 4 {
		t.Fatalf("expected max retries 4, got %d", p.MaxRetries)
	}
}
