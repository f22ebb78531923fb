package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"climatesage-backend/internal/models"
	"climatesage-backend/internal/services"
)

const maxAudioUpload = 25 << 20

type tutorReplier interface {
	Reply(ctx context.Context, message string) (string, error)
}

type voiceService interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, modelID string) (string, error)
	SignedURL(ctx context.Context, agentType string) (string, error)
}

// FunctionsHandler serves the /functions/v1 endpoints the browser calls
// directly. They answer with a flat {"error": "..."} body on failure.
type FunctionsHandler struct {
	tutor  tutorReplier
	voice  voiceService
	logger *slog.Logger
}

func NewFunctionsHandler(tutor tutorReplier, voice voiceService, logger *slog.Logger) *FunctionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FunctionsHandler{tutor: tutor, voice: voice, logger: logger}
}

func writeFunctionError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.FunctionError{Error: message})
}

// ClimateChat is the tutor chat function targeted by the gateway's AskChat.
func (h *FunctionsHandler) ClimateChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeFunctionError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeFunctionError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := h.tutor.Reply(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("climate-chat failed", "error", err)
		writeFunctionError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}

// SpeechToText proxies a recorded clip to the transcription API.
func (h *FunctionsHandler) SpeechToText(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		writeFunctionError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeFunctionError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	text, err := h.voice.Transcribe(r.Context(), hdr.Filename, file, r.FormValue("model_id"))
	if err != nil {
		h.logger.Warn("speech-to-text failed", "filename", hdr.Filename, "error", err)
		writeFunctionError(w, functionStatus(err), functionMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// ElevenLabsURL returns a signed conversation URL for the voice agent.
func (h *FunctionsHandler) ElevenLabsURL(w http.ResponseWriter, r *http.Request) {
	var req models.SignedURLRequest
	if r.Body != nil {
		// An empty body selects the default agent.
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeFunctionError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	signedURL, err := h.voice.SignedURL(r.Context(), req.AgentType)
	if err != nil {
		h.logger.Warn("get-elevenlabs-url failed", "agent_type", req.AgentType, "error", err)
		writeFunctionError(w, functionStatus(err), functionMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, models.SignedURLResponse{SignedURL: signedURL})
}

// functionStatus forwards an upstream error status. Malformed upstream
// replies and local failures are 500.
func functionStatus(err error) int {
	var media *services.MediaAccessError
	if errors.As(err, &media) {
		return http.StatusBadRequest
	}
	var remote *services.RemoteServiceError
	if errors.As(err, &remote) && remote.StatusCode >= 400 && remote.StatusCode <= 599 {
		return remote.StatusCode
	}
	return http.StatusInternalServerError
}

func functionMessage(err error) string {
	var remote *services.RemoteServiceError
	if errors.As(err, &remote) {
		return remote.Message
	}
	return err.Error()
}
