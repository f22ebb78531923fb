// Package cli provides the command-line interface for ClimateSage.
package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"climatesage-backend/internal/config"
	"climatesage-backend/internal/services"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	timeout time.Duration
	logFile string

	logger   *slog.Logger
	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "climatesage",
	Short: "Climate science tutor from the terminal",
	Long: `ClimateSage talks to the same chat function and quiz models as the web
app. Ask the tutor a question, take a quiz, check how a question would be
classified, or transcribe a voice recording.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger("climatesage", logFile, level)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func newGateway() (*services.Gateway, error) {
	return services.NewGateway(config.LoadGateway(), &http.Client{Timeout: timeout}, logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 90*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", os.Getenv("LOG_FILE"), "also append JSON logs to this file")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(transcribeCmd)
}
