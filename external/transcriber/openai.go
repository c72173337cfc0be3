package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/transcriber"
	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	Token          string
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	TempDir        string
	Policy         transcriber.RetryPolicy
}

// OpenAITranscriber sends segments through the go-openai client. It serves OpenAI
// itself and any gateway exposing the same /audio/transcriptions contract.
type OpenAITranscriber struct {
	cfg   OpenAIConfig
	model string
	now   func() time.Time
}

func NewOpenAITranscriber(cfg OpenAIConfig) *OpenAITranscriber {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &OpenAITranscriber{cfg: cfg, model: model, now: time.Now}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, seg audio.Segment) transcriber.Result {
	path, err := writeTempSegment(t.cfg.TempDir, seg, t.now())
	if err != nil {
		return transcriber.Result{Status: transcriber.StatusFailed, Err: fmt.Errorf("write segment: %w", err)}
	}
	defer removeTempFile(path)

	httpClient := newSegmentClient(t.cfg.ConnectTimeout, t.cfg.ReadTimeout)
	defer httpClient.CloseIdleConnections()

	clientConfig := openai.DefaultConfig(t.cfg.Token)
	if base := strings.TrimSpace(t.cfg.BaseURL); base != "" {
		clientConfig.BaseURL = strings.TrimRight(base, "/")
	}
	clientConfig.HTTPClient = httpClient
	client := openai.NewClientWithConfig(clientConfig)

	return t.cfg.Policy.Do(ctx, func(ctx context.Context, n int) transcriber.Attempt {
		resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    t.model,
			FilePath: path,
			Format:   openai.AudioResponseFormatJSON,
		})
		if err != nil {
			a := classifyOpenAIError(ctx, err)
			logAttemptFailure(seg, n, t.cfg.Policy.MaxRetries, a)
			return a
		}
		return transcriber.Attempt{Outcome: transcriber.OutcomeSucceeded, StatusCode: http.StatusOK, Text: resp.Text}
	})
}

// classifyOpenAIError maps go-openai errors onto retry outcomes. The client does not
// expose Retry-After on failures, so rate limits fall back to the policy default.
func classifyOpenAIError(ctx context.Context, err error) transcriber.Attempt {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return attemptForStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return attemptForStatus(reqErr.HTTPStatusCode, err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, StatusCode: http.StatusOK, Err: fmt.Errorf("decode transcription response: %w", err)}
	}
	return classifyTransportError(ctx, err)
}

func attemptForStatus(code int, err error) transcriber.Attempt {
	if code == http.StatusTooManyRequests {
		return transcriber.Attempt{Outcome: transcriber.OutcomeRateLimited, StatusCode: code, Err: err}
	}
	return transcriber.Attempt{Outcome: transcriber.OutcomeRejected, StatusCode: code, Err: err}
}
