package models

import (
	"time"

	"github.com/google/uuid"
)

const QuizLength = 5

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is a generated quiz the client is currently answering.
type Quiz struct {
	ID        uuid.UUID      `json:"id"`
	Prompt    string         `json:"prompt"`
	Questions []QuizQuestion `json:"questions"`
	Answers   map[int]int    `json:"answers"` // question index -> answer index
	Score     int            `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}

// QuizHistoryEntry is a completed quiz attempt. Immutable once created.
type QuizHistoryEntry struct {
	ID             uuid.UUID      `json:"id"`
	Topic          string         `json:"topic"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"total_questions"`
	CompletedAt    time.Time      `json:"completed_at"`
	Questions      []QuizQuestion `json:"questions"`
}

type GenerateQuizRequest struct {
	Prompt string `json:"prompt"`
}

type AnswerRequest struct {
	QuestionIndex int `json:"question_index"`
	AnswerIndex   int `json:"answer_index"`
}

type AnswerResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Score         int    `json:"score"`
	Answered      int    `json:"answered"`
	Total         int    `json:"total"`
}
