package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"climatesage-backend/internal/models"
	"climatesage-backend/internal/repository"
)

// QuizGenerator is the quiz side of the AI gateway.
type QuizGenerator interface {
	GenerateQuizWithProgress(ctx context.Context, prompt string, observe AttemptObserver) (string, error)
}

// quizState is the client's quiz in progress. Completed quizzes live only in
// the store.
type quizState struct {
	active *models.Quiz
}

type QuizService struct {
	store     *repository.JSONStore[models.QuizHistoryEntry]
	generator QuizGenerator
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	clients *clientStates[quizState]
}

func NewQuizService(store *repository.JSONStore[models.QuizHistoryEntry], generator QuizGenerator, publisher Publisher, logger *slog.Logger) *QuizService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizService{
		store:     store,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		clients:   newClientStates[quizState](ClientIdleTTL),
	}
}

// lock returns the client's entry pinned and locked. Release it with unlock.
func (s *QuizService) lock(clientID uuid.UUID) *clientEntry[quizState] {
	e := s.clients.hold(clientID)
	e.mu.Lock()
	return e
}

func (s *QuizService) unlock(e *clientEntry[quizState]) {
	e.mu.Unlock()
	s.clients.release(e)
}

func (s *QuizService) loadHistory(ctx context.Context, clientID uuid.UUID) ([]models.QuizHistoryEntry, error) {
	history, err := s.store.LoadAll(ctx, clientID)
	if err != nil {
		s.logger.Error("failed to load quiz history", "client_id", clientID, "error", err)
		return nil, err
	}
	return history, nil
}

// Generate asks the model chain for a quiz on prompt and makes it the
// client's active quiz, replacing any unfinished one.
func (s *QuizService) Generate(ctx context.Context, clientID uuid.UUID, prompt string) (*models.Quiz, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &ValidationError{Fields: map[string]string{"prompt": "Quiz topic is required"}}
	}

	raw, err := s.generator.GenerateQuizWithProgress(ctx, prompt, func(attempt, total int, c Candidate, err error) {
		update := models.QuizAttemptUpdate{Model: c.String(), Attempt: attempt, Total: total}
		if err != nil {
			update.Error = err.Error()
		}
		s.publisher.Publish(ctx, clientID, models.WSMessage{Type: "quiz_progress", Payload: update})
	})
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuiz(raw)
	if err != nil {
		s.logger.Warn("model output rejected", "client_id", clientID, "error", err)
		return nil, err
	}

	quiz := &models.Quiz{
		ID:        uuid.New(),
		Prompt:    prompt,
		Questions: questions,
		Answers:   map[int]int{},
		CreatedAt: s.now(),
	}

	e := s.lock(clientID)
	e.state.active = quiz
	s.unlock(e)

	out := cloneQuiz(quiz)
	return &out, nil
}

func (s *QuizService) Active(ctx context.Context, clientID uuid.UUID) (*models.Quiz, error) {
	e := s.lock(clientID)
	defer s.unlock(e)

	if e.state.active == nil {
		return nil, &NotFoundError{Message: "No quiz in progress"}
	}
	out := cloneQuiz(e.state.active)
	return &out, nil
}

// Answer records the client's choice for one question. Each question can be
// answered once.
func (s *QuizService) Answer(ctx context.Context, clientID, quizID uuid.UUID, questionIndex, answerIndex int) (*models.AnswerResult, error) {
	e := s.lock(clientID)
	defer s.unlock(e)

	quiz, err := activeQuiz(&e.state, quizID)
	if err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(quiz.Questions) {
		return nil, &ValidationError{Fields: map[string]string{"question_index": "Question does not exist"}}
	}
	q := quiz.Questions[questionIndex]
	if answerIndex < 0 || answerIndex >= len(q.Options) {
		return nil, &ValidationError{Fields: map[string]string{"answer_index": "Answer is not one of the options"}}
	}
	if _, done := quiz.Answers[questionIndex]; done {
		return nil, &ConflictError{Message: "Question already answered"}
	}

	quiz.Answers[questionIndex] = answerIndex
	correct := answerIndex == q.CorrectAnswer
	if correct {
		quiz.Score++
	}

	return &models.AnswerResult{
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Score:         quiz.Score,
		Answered:      len(quiz.Answers),
		Total:         len(quiz.Questions),
	}, nil
}

// Finish turns a fully answered quiz into a history entry.
func (s *QuizService) Finish(ctx context.Context, clientID, quizID uuid.UUID) (*models.QuizHistoryEntry, error) {
	e := s.lock(clientID)
	defer s.unlock(e)

	quiz, err := activeQuiz(&e.state, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Answers) < len(quiz.Questions) {
		return nil, &ValidationError{Fields: map[string]string{"answers": "Answer every question before finishing"}}
	}

	entry := models.QuizHistoryEntry{
		ID:             uuid.New(),
		Topic:          quiz.Prompt,
		Score:          quiz.Score,
		TotalQuestions: len(quiz.Questions),
		CompletedAt:    s.now(),
		Questions:      append([]models.QuizQuestion(nil), quiz.Questions...),
	}

	history, err := s.loadHistory(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAll(ctx, clientID, append(history, entry)); err != nil {
		s.logger.Error("failed to persist quiz history", "client_id", clientID, "error", err)
		return nil, err
	}
	e.state.active = nil

	return &entry, nil
}

// History lists completed quizzes, newest first. An unreadable store yields
// an empty list.
func (s *QuizService) History(ctx context.Context, clientID uuid.UUID) []models.QuizHistoryEntry {
	e := s.lock(clientID)
	defer s.unlock(e)

	history, err := s.loadHistory(ctx, clientID)
	if err != nil {
		return []models.QuizHistoryEntry{}
	}
	out := append([]models.QuizHistoryEntry{}, history...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}

func (s *QuizService) DeleteHistory(ctx context.Context, clientID, entryID uuid.UUID) error {
	e := s.lock(clientID)
	defer s.unlock(e)

	history, err := s.loadHistory(ctx, clientID)
	if err != nil {
		return err
	}
	kept := make([]models.QuizHistoryEntry, 0, len(history))
	for _, entry := range history {
		if entry.ID != entryID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(history) {
		return &NotFoundError{Message: "Quiz history entry not found"}
	}
	return s.store.SaveAll(ctx, clientID, kept)
}

func activeQuiz(st *quizState, quizID uuid.UUID) (*models.Quiz, error) {
	if st.active == nil || st.active.ID != quizID {
		return nil, &NotFoundError{Message: "Quiz not found or no longer active"}
	}
	return st.active, nil
}

func cloneQuiz(q *models.Quiz) models.Quiz {
	out := *q
	out.Questions = append([]models.QuizQuestion(nil), q.Questions...)
	out.Answers = make(map[int]int, len(q.Answers))
	for k, v := range q.Answers {
		out.Answers[k] = v
	}
	return out
}
