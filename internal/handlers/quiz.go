package handlers

import (
	"net/http"

	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/models"
	"climatesage-backend/internal/services"
)

type QuizHandler struct {
	quiz *services.QuizService
}

func NewQuizHandler(quiz *services.QuizService) *QuizHandler {
	return &QuizHandler{quiz: quiz}
}

// Generate blocks until a model in the fallback chain answers. Progress is
// pushed over the client's websocket as quiz_progress events.
func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quiz, err := h.quiz.Generate(r.Context(), middleware.GetClientID(r.Context()), req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) Active(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quiz.Active(r.Context(), middleware.GetClientID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	quizID, ok := uuidParam(w, r, "id", "quiz")
	if !ok {
		return
	}

	var req models.AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.quiz.Answer(r.Context(), middleware.GetClientID(r.Context()), quizID, req.QuestionIndex, req.AnswerIndex)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) Finish(w http.ResponseWriter, r *http.Request) {
	quizID, ok := uuidParam(w, r, "id", "quiz")
	if !ok {
		return
	}

	entry, err := h.quiz.Finish(r.Context(), middleware.GetClientID(r.Context()), quizID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.quiz.History(r.Context(), middleware.GetClientID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (h *QuizHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	entryID, ok := uuidParam(w, r, "id", "history entry")
	if !ok {
		return
	}

	if err := h.quiz.DeleteHistory(r.Context(), middleware.GetClientID(r.Context()), entryID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz history entry deleted"})
}
