package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"climatesage-backend/internal/services"
)

var classifyResponse string

var classifyCmd = &cobra.Command{
	Use:   "classify <question>",
	Short: "Show the topic label and chart decision for a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := args[0]
		topic := services.ClassifyTopic(question)
		fmt.Fprintf(cmd.OutOrStdout(), "topic: %s\nshow_chart: %t\n", topic, services.ShouldShowChart(question, topic, classifyResponse))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyResponse, "response", "r", "", "tutor response to classify along with the question")
}
