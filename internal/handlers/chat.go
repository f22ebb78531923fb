package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/models"
	"climatesage-backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, currentID := h.chat.Sessions(r.Context(), middleware.GetClientID(r.Context()))

	resp := models.SessionListResponse{Sessions: sessions}
	if currentID != uuid.Nil {
		resp.CurrentSessionID = &currentID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.NewChat(r.Context(), middleware.GetClientID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "id", "session")
	if !ok {
		return
	}

	session, err := h.chat.Get(r.Context(), middleware.GetClientID(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *ChatHandler) RenameSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "id", "session")
	if !ok {
		return
	}

	var req models.RenameSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.chat.Rename(r.Context(), middleware.GetClientID(r.Context()), sessionID, req.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.chat.Delete(r.Context(), middleware.GetClientID(r.Context()), sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func (h *ChatHandler) SelectSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "id", "session")
	if !ok {
		return
	}

	session, err := h.chat.Select(r.Context(), middleware.GetClientID(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// SendMessage appends the user's message to the current session and waits
// for the tutor's reply.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.chat.Send(r.Context(), middleware.GetClientID(r.Context()), req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Classify exposes the topic and chart classifiers for a question/answer
// pair.
func (h *ChatHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req models.ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	topic := services.ClassifyTopic(req.Question)
	writeJSON(w, http.StatusOK, models.ClassifyResponse{
		Topic:     topic,
		ShowChart: services.ShouldShowChart(req.Question, topic, req.Response),
	})
}
