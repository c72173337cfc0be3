package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/foxseedlab/segscribe/internal/app"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := app.MustLoadConfig()
	app.InitLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "provider", cfg.TranscriberProvider)

	slog.Info("startup: building dependency graph")
	injector := app.SetupDI(cfg)
	defer app.Shutdown(injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunServer(ctx, injector); err != nil {
		slog.Error("http server failed", "error", err)
		stop()
		app.Shutdown(injector)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
