package config

import (
	"fmt"
	"time"
)

type TranscriberProvider string

const (
	ProviderSiliconFlow TranscriberProvider = "siliconflow"
	ProviderOpenAI      TranscriberProvider = "openai"
	ProviderGoogle      TranscriberProvider = "google"
)

type Config struct {
	Env             string
	HTTPAddr        string
	UploadDir       string
	MaxUploadSizeMB int64

	APIToken              string
	TranscriberProvider   TranscriberProvider
	TranscriptionEndpoint string
	TranscriptionModel    string
	OpenAIBaseURL         string
	MaxRetries            int
	ConnectTimeout        time.Duration
	ReadTimeout           time.Duration
	TranscribeConcurrency int

	SegmentDuration    time.Duration
	MinSegmentDuration time.Duration
	FFmpegPath         string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	GoogleCloudSpeechLanguage  string

	DatabaseURL                string
	TranscriptWebhookURL       string
	DiscordToken               string
	DiscordTranscriptChannelID string
	KafkaBrokers               []string
	KafkaTopic                 string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.TranscriberProvider {
	case ProviderSiliconFlow, ProviderOpenAI:
	case ProviderGoogle:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBER_PROVIDER=google")
		}
	default:
		return fmt.Errorf("TRANSCRIBER_PROVIDER %q is not supported", c.TranscriberProvider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("TRANSCRIBE_MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.TranscribeConcurrency <= 0 {
		return fmt.Errorf("TRANSCRIBE_CONCURRENCY must be positive, got %d", c.TranscribeConcurrency)
	}
	if c.SegmentDuration <= 0 {
		return fmt.Errorf("SEGMENT_DURATION must be positive, got %s", c.SegmentDuration)
	}
	if c.MinSegmentDuration < 0 || c.MinSegmentDuration >= c.SegmentDuration {
		return fmt.Errorf("MIN_SEGMENT_DURATION must be in [0, SEGMENT_DURATION), got %s", c.MinSegmentDuration)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive, got %d", c.MaxUploadSizeMB)
	}
	if c.DiscordToken != "" && c.DiscordTranscriptChannelID == "" {
		return fmt.Errorf("DISCORD_TRANSCRIPT_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "UPLOAD_DIR", value: c.UploadDir},
		{name: "TRANSCRIPTION_MODEL", value: c.TranscriptionModel},
		{name: "FFMPEG_PATH", value: c.FFmpegPath},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// RequiresAPIToken reports whether the selected provider authenticates with API_TOKEN.
// The token is checked per request, so a missing token surfaces as a configuration error
// on upload rather than at startup.
func (c *Config) RequiresAPIToken() bool {
	return c.TranscriberProvider != ProviderGoogle
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}
