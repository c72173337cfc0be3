package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/segscribe/internal/config"
	"github.com/joho/godotenv"
)

var dotenvPaths = []string{".env", ".env.local"}

type envConfig struct {
	Env             string `env:"ENV" envDefault:"production"`
	HTTPAddr        string `env:"HTTP_ADDR" envDefault:":5000"`
	UploadDir       string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadSizeMB int64  `env:"MAX_UPLOAD_SIZE_MB" envDefault:"1024"`

	APIToken              string        `env:"API_TOKEN"`
	TranscriberProvider   string        `env:"TRANSCRIBER_PROVIDER" envDefault:"siliconflow"`
	TranscriptionEndpoint string        `env:"TRANSCRIPTION_ENDPOINT" envDefault:"https://api.siliconflow.cn/v1/audio/transcriptions"`
	TranscriptionModel    string        `env:"TRANSCRIPTION_MODEL" envDefault:"FunAudioLLM/SenseVoiceSmall"`
	OpenAIBaseURL         string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	MaxRetries            int           `env:"TRANSCRIBE_MAX_RETRIES" envDefault:"5"`
	ConnectTimeout        time.Duration `env:"TRANSCRIBE_CONNECT_TIMEOUT" envDefault:"30s"`
	ReadTimeout           time.Duration `env:"TRANSCRIBE_READ_TIMEOUT" envDefault:"300s"`
	TranscribeConcurrency int           `env:"TRANSCRIBE_CONCURRENCY" envDefault:"1"`

	SegmentDuration    time.Duration `env:"SEGMENT_DURATION" envDefault:"5m"`
	MinSegmentDuration time.Duration `env:"MIN_SEGMENT_DURATION" envDefault:"1s"`
	FFmpegPath         string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	GoogleCloudSpeechLanguage  string `env:"GOOGLE_CLOUD_SPEECH_LANGUAGE" envDefault:"en-US"`

	DatabaseURL                string   `env:"DATABASE_URL"`
	TranscriptWebhookURL       string   `env:"TRANSCRIPT_WEBHOOK_URL"`
	DiscordToken               string   `env:"DISCORD_TOKEN"`
	DiscordTranscriptChannelID string   `env:"DISCORD_TRANSCRIPT_CHANNEL_ID"`
	KafkaBrokers               []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic                 string   `env:"KAFKA_TOPIC" envDefault:"transcription.completed"`
}

// Load reads .env files when present, then parses the process environment.
// Variables already set in the environment win over .env values.
func Load() (*internalconfig.Config, error) {
	if err := loadDotenv(dotenvPaths...); err != nil {
		return nil, err
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		UploadDir:                  raw.UploadDir,
		MaxUploadSizeMB:            raw.MaxUploadSizeMB,
		APIToken:                   raw.APIToken,
		TranscriberProvider:        internalconfig.TranscriberProvider(raw.TranscriberProvider),
		TranscriptionEndpoint:      raw.TranscriptionEndpoint,
		TranscriptionModel:         raw.TranscriptionModel,
		OpenAIBaseURL:              raw.OpenAIBaseURL,
		MaxRetries:                 raw.MaxRetries,
		ConnectTimeout:             raw.ConnectTimeout,
		ReadTimeout:                raw.ReadTimeout,
		TranscribeConcurrency:      raw.TranscribeConcurrency,
		SegmentDuration:            raw.SegmentDuration,
		MinSegmentDuration:         raw.MinSegmentDuration,
		FFmpegPath:                 raw.FFmpegPath,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		GoogleCloudSpeechLanguage:  raw.GoogleCloudSpeechLanguage,
		DatabaseURL:                raw.DatabaseURL,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		DiscordToken:               raw.DiscordToken,
		DiscordTranscriptChannelID: raw.DiscordTranscriptChannelID,
		KafkaBrokers:               raw.KafkaBrokers,
		KafkaTopic:                 raw.KafkaTopic,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("error loading %s file: %w", p, err)
		}
		slog.Debug("loaded environment file", "path", p)
	}
	return nil
}
