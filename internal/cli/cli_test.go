package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatesage-backend/internal/models"
)

var testQuestions = []models.QuizQuestion{
	{ID: 1, Question: "Main fossil-fuel greenhouse gas?", Options: []string{"CO2", "Helium", "Neon", "Argon"}, CorrectAnswer: 0, Explanation: "Combustion releases CO2."},
	{ID: 2, Question: "Which is renewable?", Options: []string{"Coal", "Wind"}, CorrectAnswer: 1},
}

func TestPlayQuiz(t *testing.T) {
	var out bytes.Buffer
	score := playQuiz(strings.NewReader("1\n1\n"), &out, testQuestions)

	assert.Equal(t, 1, score)
	assert.Contains(t, out.String(), "Correct!")
	assert.Contains(t, out.String(), "Combustion releases CO2.")
	assert.Contains(t, out.String(), "Not quite. The answer is 2) Wind")
}

func TestPlayQuiz_RepromptsInvalidInput(t *testing.T) {
	var out bytes.Buffer
	score := playQuiz(strings.NewReader("x\n9\n1\n2\n"), &out, testQuestions)

	assert.Equal(t, 2, score)
	assert.Equal(t, 2, strings.Count(out.String(), "Enter a number from 1 to 4."))
}

func TestPlayQuiz_StopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	score := playQuiz(strings.NewReader("1\n"), &out, testQuestions)
	assert.Equal(t, 1, score)
}

func TestClassifyCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "How have CO2 levels changed?"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "topic: Climate Science\nshow_chart: true\n", out.String())
}
