// Package app assembles the dependency graph shared by the server and CLI binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	audioimpl "github.com/foxseedlab/segscribe/external/audio"
	configloader "github.com/foxseedlab/segscribe/external/config"
	discordimpl "github.com/foxseedlab/segscribe/external/discord"
	eventsimpl "github.com/foxseedlab/segscribe/external/events"
	"github.com/foxseedlab/segscribe/external/httpserver"
	repositoryimpl "github.com/foxseedlab/segscribe/external/repository"
	transcriberimpl "github.com/foxseedlab/segscribe/external/transcriber"
	webhookimpl "github.com/foxseedlab/segscribe/external/webhook"
	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/job"
	"github.com/foxseedlab/segscribe/internal/metrics"
	"github.com/foxseedlab/segscribe/internal/upload"
	"github.com/samber/do/v2"
)

func MustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func InitLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func SetupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metrics.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discordimpl.RegisterDI(injector)
	eventsimpl.RegisterDI(injector)
	job.RegisterDI(injector)
	httpserver.RegisterDI(injector)

	return injector
}

// RunServer serves HTTP until ctx is canceled.
func RunServer(ctx context.Context, injector do.Injector) error {
	srv, err := do.Invoke[*httpserver.Server](injector)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// TranscribeFile runs one job against a local media file, outside of HTTP. The
// transcript is written to the upload directory like any uploaded job.
func TranscribeFile(ctx context.Context, injector do.Injector, path string) (*job.Output, error) {
	base := filepath.Base(path)
	if !upload.AllowedFile(base) {
		return nil, fmt.Errorf("unsupported file type: %s", base)
	}
	name := upload.SecureFilename(base)
	if !upload.AllowedFile(name) {
		name = "upload" + strings.ToLower(filepath.Ext(base))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	processor, err := do.Invoke[*job.Processor](injector)
	if err != nil {
		return nil, err
	}
	return processor.Process(ctx, job.Input{Path: path, Filename: name})
}

// Shutdown releases pooled resources such as the database pool and Kafka writer.
func Shutdown(injector do.Injector) {
	injector.Shutdown()
}
