package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/transcriber"
)

const (
	DefaultEndpoint = "https://api.siliconflow.cn/v1/audio/transcriptions"
	DefaultModel    = "FunAudioLLM/SenseVoiceSmall"

	uploadFilename     = "audio.wav"
	userAgent          = "Mozilla/5.0"
	errorBodyLogLimit  = 4 << 10
	defaultDialTimeout = 30 * time.Second
	defaultReadTimeout = 300 * time.Second
)

type HTTPConfig struct {
	Endpoint       string
	Token          string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	TempDir        string
	Policy         transcriber.RetryPolicy
}

// HTTPTranscriber posts each segment as multipart/form-data to an
// OpenAI-compatible /audio/transcriptions endpoint.
type HTTPTranscriber struct {
	endpoint       string
	token          string
	model          string
	connectTimeout time.Duration
	readTimeout    time.Duration
	tempDir        string
	policy         transcriber.RetryPolicy
	now            func() time.Time
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func NewHTTPTranscriber(cfg HTTPConfig) *HTTPTranscriber {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultDialTimeout
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &HTTPTranscriber{
		endpoint:       endpoint,
		token:          cfg.Token,
		model:          model,
		connectTimeout: connectTimeout,
		readTimeout:    readTimeout,
		tempDir:        cfg.TempDir,
		policy:         cfg.Policy,
		now:            time.Now,
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, seg audio.Segment) transcriber.Result {
	path, err := writeTempSegment(t.tempDir, seg, t.now())
	if err != nil {
		return transcriber.Result{Status: transcriber.StatusFailed, Err: fmt.Errorf("write segment: %w", err)}
	}
	defer removeTempFile(path)

	client := newSegmentClient(t.connectTimeout, t.readTimeout)
	defer client.CloseIdleConnections()

	return t.policy.Do(ctx, func(ctx context.Context, n int) transcriber.Attempt {
		a := t.post(ctx, client, path)
		if a.Outcome != transcriber.OutcomeSucceeded {
			logAttemptFailure(seg, n, t.policy.MaxRetries, a)
		}
		return a
	})
}

// newSegmentClient builds a client with its own connection pool so each segment starts
// and ends with a fresh set of connections. readTimeout bounds every socket read, the
// response body included.
func newSegmentClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := dialer.DialContext(ctx, network, addr)
				if err != nil {
					return nil, err
				}
				return &readDeadlineConn{Conn: conn, timeout: readTimeout}, nil
			},
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: readTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// readDeadlineConn pushes the read deadline forward before each Read, so a peer
// that stops sending for longer than timeout fails the read.
type readDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *readDeadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (t *HTTPTranscriber) post(ctx context.Context, client *http.Client, path string) transcriber.Attempt {
	body, contentType, err := t.buildBody(path)
	if err != nil {
		return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		var parsed transcriptionResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode transcription response: %w", err)}
		}
		return transcriber.Attempt{Outcome: transcriber.OutcomeSucceeded, StatusCode: resp.StatusCode, Text: parsed.Text}
	case resp.StatusCode == http.StatusTooManyRequests:
		return transcriber.Attempt{
			Outcome:    transcriber.OutcomeRateLimited,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("api rate limited: %s", readErrorBody(resp.Body)),
		}
	default:
		return transcriber.Attempt{
			Outcome:    transcriber.OutcomeRejected,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("api call failed: %d - %s", resp.StatusCode, readErrorBody(resp.Body)),
		}
	}
}

func (t *HTTPTranscriber) buildBody(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = f.Close()
	}()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, uploadFilename))
	h.Set("Content-Type", "audio/wav")
	fw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

// classifyTransportError maps a failed round trip onto the retry outcomes.
// Cancellation of the caller's context is final; everything else is a network error.
func classifyTransportError(ctx context.Context, err error) transcriber.Attempt {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, Err: ctxErr}
	}
	if errors.Is(err, context.Canceled) {
		return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, Err: err}
	}
	return transcriber.Attempt{Outcome: transcriber.OutcomeNetworkError, Err: err}
}

// parseRetryAfter accepts delay-seconds. Anything else returns zero so the policy default applies.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func logAttemptFailure(seg audio.Segment, n, maxRetries int, a transcriber.Attempt) {
	slog.Warn("transcription attempt failed",
		"segment_index", seg.Index,
		"attempt", n+1,
		"max_retries", maxRetries,
		"outcome", a.Outcome.String(),
		"status_code", a.StatusCode,
		"error", a.Err)
}

func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, errorBodyLogLimit))
	return strings.TrimSpace(string(b))
}
