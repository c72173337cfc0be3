package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/foxseedlab/segscribe/internal/app"
	"github.com/spf13/cobra"
)

var printText bool

func init() {
	transcribeCmd.Flags().BoolVarP(&printText, "print", "p", false, "print the transcript to stdout")
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe a local media file",
	Long: `Transcribe a local media file (mp4, wav, mp3, aac, m4a) with the configured
provider. The transcript is written to UPLOAD_DIR as <name>_transcription.txt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.MustLoadConfig()
		app.InitLogger(cfg)
		if cfg.RequiresAPIToken() && cfg.APIToken == "" {
			return fmt.Errorf("API_TOKEN is required for provider %q", cfg.TranscriberProvider)
		}

		injector := app.SetupDI(cfg)
		defer app.Shutdown(injector)

		ctx, stop := signalContext(cmd)
		defer stop()

		out, err := app.TranscribeFile(ctx, injector, args[0])
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		if printText {
			fmt.Fprintln(cmd.OutOrStdout(), out.Text)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "job %s: %d segments (%d empty), transcript saved to %s\n",
			out.JobID, out.SegmentCount, out.EmptySegmentCount, out.ResultPath)
		return nil
	},
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
