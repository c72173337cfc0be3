package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "segscribe",
	Short: "Transcribe audio and video files in fixed-length segments",
	Long: `segscribe splits uploaded media into fixed-length segments, sends each one to a
speech-to-text provider with retries, and joins the results into a transcript.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(transcribeCmd)
}
