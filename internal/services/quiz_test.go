package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatesage-backend/internal/models"
	"climatesage-backend/internal/repository"
)

const threeQuestionQuiz = "```json\n" + `[
  {"question": "Main greenhouse gas from fossil fuels?", "options": ["CO2", "O2", "N2", "Ar"], "correctAnswer": 0, "explanation": "Burning fossil fuels releases CO2."},
  {"question": "Where is the Keeling curve measured?", "options": ["Greenland", "Mauna Loa", "Antarctica", "Alps"], "correctAnswer": 1, "explanation": "Mauna Loa Observatory, Hawaii."},
  {"question": "Which is renewable?", "options": ["Coal", "Gas", "Wind", "Oil"], "correctAnswer": "2", "explanation": "Wind is renewable."}
]` + "\n```"

type fakeGenerator struct {
	raw string
	err error
}

func (f *fakeGenerator) GenerateQuizWithProgress(_ context.Context, prompt string, observe AttemptObserver) (string, error) {
	if observe != nil {
		observe(1, 2, Candidate{"v1beta", "gemini-2.0-flash"}, errors.New("HTTP 404"))
		observe(2, 2, Candidate{"v1", "gemini-1.5-pro"}, f.err)
	}
	return f.raw, f.err
}

func newTestQuizService(kv repository.KeyValue, gen QuizGenerator, pub Publisher) *QuizService {
	store := repository.NewJSONStore[models.QuizHistoryEntry](kv, repository.QuizHistoryNamespace, nil)
	svc := NewQuizService(store, gen, pub, nil)
	svc.now = tickingClock()
	return svc
}

func TestQuizService_FullFlow(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	kv := repository.NewMemoryKV()
	pub := &recordingPublisher{}
	svc := newTestQuizService(kv, &fakeGenerator{raw: threeQuestionQuiz}, pub)

	quiz, err := svc.Generate(ctx, clientID, "carbon cycle")
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 3)
	assert.Equal(t, 2, quiz.Questions[2].CorrectAnswer)
	assert.Equal(t, []string{"quiz_progress", "quiz_progress"}, pub.types())

	res, err := svc.Answer(ctx, clientID, quiz.ID, 0, 0)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, "Burning fossil fuels releases CO2.", res.Explanation)
	assert.Equal(t, 1, res.Score)

	res, err = svc.Answer(ctx, clientID, quiz.ID, 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 1, res.CorrectAnswer)

	// Finishing early is refused.
	_, err = svc.Finish(ctx, clientID, quiz.ID)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))

	_, err = svc.Answer(ctx, clientID, quiz.ID, 2, 2)
	require.NoError(t, err)

	entry, err := svc.Finish(ctx, clientID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "carbon cycle", entry.Topic)
	assert.Equal(t, 2, entry.Score)
	assert.Equal(t, 3, entry.TotalQuestions)

	// The finished quiz is no longer active.
	var nf *NotFoundError
	_, err = svc.Active(ctx, clientID)
	assert.True(t, errors.As(err, &nf))

	reloaded := newTestQuizService(kv, nil, nil)
	history := reloaded.History(ctx, clientID)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)
	assert.Len(t, history[0].Questions, 3)
}

func TestQuizService_AnswerRules(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	svc := newTestQuizService(repository.NewMemoryKV(), &fakeGenerator{raw: threeQuestionQuiz}, nil)

	quiz, err := svc.Generate(ctx, clientID, "energy")
	require.NoError(t, err)

	var vErr *ValidationError
	_, err = svc.Answer(ctx, clientID, quiz.ID, 5, 0)
	assert.True(t, errors.As(err, &vErr))
	_, err = svc.Answer(ctx, clientID, quiz.ID, 0, 4)
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.Answer(ctx, clientID, quiz.ID, 0, 1)
	require.NoError(t, err)
	var conflict *ConflictError
	_, err = svc.Answer(ctx, clientID, quiz.ID, 0, 0)
	assert.True(t, errors.As(err, &conflict))

	var nf *NotFoundError
	_, err = svc.Answer(ctx, clientID, uuid.New(), 1, 0)
	assert.True(t, errors.As(err, &nf))

	// A new quiz replaces the unfinished one.
	next, err := svc.Generate(ctx, clientID, "energy again")
	require.NoError(t, err)
	_, err = svc.Answer(ctx, clientID, quiz.ID, 1, 0)
	assert.True(t, errors.As(err, &nf))
	active, err := svc.Active(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, next.ID, active.ID)
	assert.Empty(t, active.Answers)
}

func TestQuizService_GenerateErrors(t *testing.T) {
	ctx := context.Background()

	svc := newTestQuizService(repository.NewMemoryKV(), &fakeGenerator{}, nil)
	_, err := svc.Generate(ctx, uuid.New(), "  ")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	upstream := &FallbackError{Attempts: []CandidateFailure{{Candidate: "v1/gemini-1.5-pro", Err: errors.New("quota")}}}
	svc = newTestQuizService(repository.NewMemoryKV(), &fakeGenerator{err: upstream}, nil)
	_, err = svc.Generate(ctx, uuid.New(), "oceans")
	var fb *FallbackError
	assert.True(t, errors.As(err, &fb))

	svc = newTestQuizService(repository.NewMemoryKV(), &fakeGenerator{raw: "Sorry, I can't help."}, nil)
	clientID := uuid.New()
	_, err = svc.Generate(ctx, clientID, "oceans")
	var qErr *QuizGenerationError
	assert.True(t, errors.As(err, &qErr))

	var nf *NotFoundError
	_, err = svc.Active(ctx, clientID)
	assert.True(t, errors.As(err, &nf), "no partial quiz is kept")
}

func TestQuizService_HistoryOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	svc := newTestQuizService(repository.NewMemoryKV(), &fakeGenerator{raw: threeQuestionQuiz}, nil)

	var ids []uuid.UUID
	for _, topic := range []string{"first", "second"} {
		quiz, err := svc.Generate(ctx, clientID, topic)
		require.NoError(t, err)
		for i := range quiz.Questions {
			_, err := svc.Answer(ctx, clientID, quiz.ID, i, 0)
			require.NoError(t, err)
		}
		entry, err := svc.Finish(ctx, clientID, quiz.ID)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	history := svc.History(ctx, clientID)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Topic)
	assert.Equal(t, "first", history[1].Topic)

	require.NoError(t, svc.DeleteHistory(ctx, clientID, ids[0]))
	history = svc.History(ctx, clientID)
	require.Len(t, history, 1)
	assert.Equal(t, ids[1], history[0].ID)

	var nf *NotFoundError
	assert.True(t, errors.As(svc.DeleteHistory(ctx, clientID, ids[0]), &nf))
}

func TestQuizService_HistorySurvivesReadFailure(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	kv := &flakyKV{MemoryKV: repository.NewMemoryKV()}
	svc := newTestQuizService(kv, &fakeGenerator{raw: threeQuestionQuiz}, nil)

	finishQuiz := func() error {
		quiz, err := svc.Generate(ctx, clientID, "oceans")
		require.NoError(t, err)
		for i := range quiz.Questions {
			_, err := svc.Answer(ctx, clientID, quiz.ID, i, 0)
			require.NoError(t, err)
		}
		_, err = svc.Finish(ctx, clientID, quiz.ID)
		return err
	}

	require.NoError(t, finishQuiz())

	kv.getFailures = 1
	assert.Empty(t, svc.History(ctx, clientID))
	assert.Len(t, svc.History(ctx, clientID), 1)

	kv.getFailures = 1
	assert.ErrorContains(t, finishQuiz(), "i/o timeout")
	_, err := svc.Active(ctx, clientID)
	assert.NoError(t, err, "an unsaved quiz stays active")

	require.NoError(t, finishQuiz())
	assert.Len(t, svc.History(ctx, clientID), 2)
}
