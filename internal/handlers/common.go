package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/models"
	"climatesage-backend/internal/services"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: requestID(r),
		},
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+label+" ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *services.ValidationError
		conflict   *services.ConflictError
		notFound   *services.NotFoundError
		quizErr    *services.QuizGenerationError
		fallback   *services.FallbackError
		remote     *services.RemoteServiceError
		media      *services.MediaAccessError
		cfg        *services.ConfigError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflict.Message, r))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.Is(err, services.ErrStaleResponse):
		writeJSON(w, http.StatusConflict, errorResp("STALE_RESPONSE", "The conversation changed before the tutor replied", r))
	case errors.As(err, &quizErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("QUIZ_GENERATION_FAILED", quizErr.Error(), r))
	case errors.As(err, &fallback):
		slog.Warn("quiz model chain exhausted", "error", err, "request_id", requestID(r))
		writeJSON(w, http.StatusBadGateway, errorResp("AI_UNAVAILABLE", "All quiz models failed. Please try again later.", r))
	case errors.As(err, &remote):
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", remote.Message, r))
	case errors.As(err, &media):
		writeJSON(w, http.StatusBadRequest, errorResp("MEDIA_ERROR", media.Message, r))
	case errors.As(err, &cfg):
		writeJSON(w, http.StatusInternalServerError, errorResp("CONFIG_ERROR", cfg.Message, r))
	default:
		slog.Error("unhandled service error", "error", err, "request_id", requestID(r))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
