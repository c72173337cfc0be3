package transcriber

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/metrics"
	"github.com/foxseedlab/segscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return New(c, NewRetryPolicy(c.MaxRetries, m))
	})
}

// New builds the transcriber selected by c.TranscriberProvider.
func New(c *config.Config, policy transcriber.RetryPolicy) (transcriber.Transcriber, error) {
	switch c.TranscriberProvider {
	case config.ProviderSiliconFlow:
		return NewHTTPTranscriber(HTTPConfig{
			Endpoint:       c.TranscriptionEndpoint,
			Token:          c.APIToken,
			Model:          c.TranscriptionModel,
			ConnectTimeout: c.ConnectTimeout,
			ReadTimeout:    c.ReadTimeout,
			TempDir:        c.UploadDir,
			Policy:         policy,
		}), nil
	case config.ProviderOpenAI:
		return NewOpenAITranscriber(OpenAIConfig{
			Token:          c.APIToken,
			BaseURL:        c.OpenAIBaseURL,
			Model:          c.TranscriptionModel,
			ConnectTimeout: c.ConnectTimeout,
			ReadTimeout:    c.ReadTimeout,
			TempDir:        c.UploadDir,
			Policy:         policy,
		}), nil
	case config.ProviderGoogle:
		return NewCloudSpeechTranscriber(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.GoogleCloudSpeechLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
			Policy:          policy,
		}), nil
	default:
		return nil, fmt.Errorf("unknown transcriber provider: %q", c.TranscriberProvider)
	}
}

// NewRetryPolicy returns the default policy with maxRetries attempts, reporting every
// backoff to the log and to m. m may be nil.
func NewRetryPolicy(maxRetries int, m *metrics.Metrics) transcriber.RetryPolicy {
	p := transcriber.DefaultRetryPolicy()
	p.MaxRetries = maxRetries
	p.OnBackoff = func(outcome transcriber.Outcome, attempt int, wait time.Duration) {
		slog.Info("waiting before next transcription attempt",
			"reason", outcome.String(),
			"attempt", attempt,
			"max_retries", maxRetries,
			"wait", wait.String())
		if m != nil {
			m.TranscriptionAttempts.WithLabelValues(outcome.String()).Inc()
			m.BackoffSeconds.WithLabelValues(outcome.String()).Add(wait.Seconds())
		}
	}
	return p
}
