package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"climatesage-backend/internal/models"
	"climatesage-backend/internal/services"
)

var quizCmd = &cobra.Command{
	Use:   "quiz <topic>",
	Short: "Take a multiple-choice quiz on a climate topic",
	Long: `Generate a quiz with the model fallback chain and answer it interactively.
Type the option number (1-4) for each question.

Examples:
  climatesage quiz "ocean acidification"
  climatesage quiz "renewable energy" -v`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuiz,
}

func runQuiz(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	gateway, err := newGateway()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Generating a quiz on %q...\n", topic)
	raw, err := gateway.GenerateQuizWithProgress(cmd.Context(), topic, func(attempt, total int, c services.Candidate, err error) {
		if err != nil {
			fmt.Fprintf(out, "  %s failed (%d/%d)\n", c, attempt, total)
		}
	})
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	questions, err := services.ParseQuiz(raw)
	if err != nil {
		return err
	}

	score := playQuiz(cmd.InOrStdin(), out, questions)
	fmt.Fprintf(out, "\nFinal score: %d/%d\n", score, len(questions))
	return nil
}

// playQuiz asks every question on out, reads answers from in and returns the
// number answered correctly. Invalid input is asked again; EOF ends the quiz.
func playQuiz(in io.Reader, out io.Writer, questions []models.QuizQuestion) int {
	scanner := bufio.NewScanner(in)
	score := 0

	for i, q := range questions {
		fmt.Fprintf(out, "\nQ%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", j+1, opt)
		}

		answer := -1
		for answer < 0 {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				return score
			}
			n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil || n < 1 || n > len(q.Options) {
				fmt.Fprintf(out, "Enter a number from 1 to %d.\n", len(q.Options))
				continue
			}
			answer = n - 1
		}

		if answer == q.CorrectAnswer {
			score++
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Not quite. The answer is %d) %s\n", q.CorrectAnswer+1, q.Options[q.CorrectAnswer])
		}
		if q.Explanation != "" {
			fmt.Fprintln(out, q.Explanation)
		}
	}
	return score
}
