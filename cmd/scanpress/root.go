package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scanpress/version"
)

var (
	cfgFile  string
	homeDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "scanpress",
	Short: "Scanned-PDF to document converter with AI-vision OCR",
	Long: `Scanpress turns scanned PDFs into editable documents by rendering each
page to an image, extracting corrected text through an AI vision model,
and assembling the result into DOCX, plain text, or HTML output.

The pipeline includes:
  - Per-page retry with exponential backoff on rate limits
  - Checkpointed progress that survives interruption and resumes
  - A second retry sweep over pages that failed the main pass
  - A job ledger recording every conversion's outcome`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.scanpress/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "scanpress home directory (default: ~/.scanpress)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, error",
	)

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from the --log-level flag.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
