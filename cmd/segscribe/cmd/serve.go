package cmd

import (
	"log/slog"

	"github.com/foxseedlab/segscribe/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.MustLoadConfig()
		app.InitLogger(cfg)
		slog.Info("startup: configuration loaded", "env", cfg.Env, "provider", cfg.TranscriberProvider)

		injector := app.SetupDI(cfg)
		defer app.Shutdown(injector)

		ctx, stop := signalContext(cmd)
		defer stop()
		return app.RunServer(ctx, injector)
	},
}
