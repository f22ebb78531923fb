package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const DefaultSTTModel = "scribe_v1"

type ElevenLabsService struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	agentID        string
	climateAgentID string
}

func NewElevenLabsService(httpClient *http.Client, baseURL, apiKey, agentID, climateAgentID string) *ElevenLabsService {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ElevenLabsService{
		http:           httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		agentID:        agentID,
		climateAgentID: climateAgentID,
	}
}

// Transcribe sends recorded audio to the speech-to-text endpoint and returns
// the transcript.
func (s *ElevenLabsService) Transcribe(ctx context.Context, filename string, audio io.Reader, modelID string) (string, error) {
	if s.apiKey == "" {
		return "", &ConfigError{Message: "ElevenLabs API key not configured"}
	}
	if audio == nil {
		return "", &MediaAccessError{Message: "No audio file provided"}
	}
	if modelID == "" {
		modelID = DefaultSTTModel
	}
	if filename == "" {
		filename = "recording.webm"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	n, err := io.Copy(part, audio)
	if err != nil {
		return "", &MediaAccessError{Message: fmt.Sprintf("failed to read audio: %v", err)}
	}
	if n == 0 {
		return "", &MediaAccessError{Message: "Recorded audio is empty"}
	}
	if err := mw.WriteField("model_id", modelID); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", s.apiKey)

	data, status, err := s.do(req)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", &RemoteServiceError{Service: "speech-to-text", StatusCode: status, Message: elevenLabsErrorMessage(data, status)}
	}

	var out struct {
		Text          *string `json:"text"`
		Transcript    *string `json:"transcript"`
		Transcription *string `json:"transcription"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &RemoteServiceError{Service: "speech-to-text", StatusCode: status, Message: "malformed response"}
	}
	for _, t := range []*string{out.Text, out.Transcript, out.Transcription} {
		if t != nil {
			return strings.TrimSpace(*t), nil
		}
	}
	return "", &RemoteServiceError{Service: "speech-to-text", StatusCode: status, Message: "response has no transcript"}
}

// SignedURL returns a conversation URL for the voice agent. agentType
// "climate" selects the climate tutor agent.
func (s *ElevenLabsService) SignedURL(ctx context.Context, agentType string) (string, error) {
	agentID := s.agentID
	if agentType == "climate" {
		agentID = s.climateAgentID
	}
	if s.apiKey == "" || agentID == "" {
		return "", &ConfigError{Message: "ElevenLabs credentials not configured"}
	}

	endpoint := s.baseURL + "/v1/convai/conversation/get_signed_url?agent_id=" + url.QueryEscape(agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)

	data, status, err := s.do(req)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", &RemoteServiceError{Service: "elevenlabs", StatusCode: status, Message: fmt.Sprintf("Failed to get signed URL: %d", status)}
	}

	var out struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.SignedURL == "" {
		return "", &RemoteServiceError{Service: "elevenlabs", StatusCode: status, Message: "malformed response"}
	}
	return out.SignedURL, nil
}

func (s *ElevenLabsService) do(req *http.Request) ([]byte, int, error) {
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, &RemoteServiceError{Service: "elevenlabs", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &RemoteServiceError{Service: "elevenlabs", StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return data, resp.StatusCode, nil
}

func elevenLabsErrorMessage(data []byte, status int) string {
	var e struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil {
		var detail struct {
			Message string `json:"message"`
		}
		if len(e.Detail) > 0 && json.Unmarshal(e.Detail, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return fmt.Sprintf("ElevenLabs API error: %d", status)
}
