package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"climatesage-backend/internal/services"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the climate tutor a question",
	Long: `Send one question to the tutor chat function and print the reply.

Examples:
  climatesage ask "Why is CO2 called a greenhouse gas?"
  climatesage ask "How do solar panels work?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	gateway, err := newGateway()
	if err != nil {
		return err
	}

	reply, err := gateway.AskChat(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	topic := services.ClassifyTopic(question)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[%s]\n\n%s\n", topic, reply)
	if services.ShouldShowChart(question, topic, reply) {
		series := services.CO2Series()
		first, last := series[0], series[len(series)-1]
		fmt.Fprintf(out, "\nAtmospheric CO2 (Mauna Loa): %.1f ppm in %d, %.1f ppm in %d\n", first.CO2, first.Year, last.CO2, last.Year)
	}
	return nil
}
