package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/models"
)

type ClientHandler struct {
	jwtAuth *middleware.JWTAuth
}

func NewClientHandler(jwtAuth *middleware.JWTAuth) *ClientHandler {
	return &ClientHandler{jwtAuth: jwtAuth}
}

// Create registers a new browser client. The token is the client's only
// handle on its stored sessions and quiz history.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.New()
	token, err := h.jwtAuth.GenerateClientToken(clientID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue client token", r))
		return
	}
	writeJSON(w, http.StatusCreated, models.ClientToken{ClientID: clientID, Token: token})
}
