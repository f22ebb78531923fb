package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"climatesage-backend/internal/config"
	"climatesage-backend/internal/services"
)

var transcribeModel string

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe a voice recording with ElevenLabs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		defer f.Close()

		el := config.LoadElevenLabs()
		voice := services.NewElevenLabsService(&http.Client{Timeout: timeout}, el.BaseURL, el.APIKey, el.AgentID, el.ClimateAgentID)

		text, err := voice.Transcribe(cmd.Context(), filepath.Base(args[0]), f, transcribeModel)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeModel, "model", services.DefaultSTTModel, "speech-to-text model id")
}
