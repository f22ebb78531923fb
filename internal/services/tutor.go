package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const tutorInstruction = `You are ClimateSage, a friendly AI tutor who explains climate science to students.
Answer clearly and accurately in a few short paragraphs. When the question is about greenhouse gases,
mention the relevant numbers (for example atmospheric CO2 in ppm). Stay on climate topics: climate
science, renewable energy, climate policy and the impacts of climate change. Plain text only.`

// TutorService is the Gemini-backed chat function behind AskChat.
type TutorService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func NewTutorService(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*TutorService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.SystemInstruction = genai.NewUserContent(genai.Text(tutorInstruction))

	if logger == nil {
		logger = slog.Default()
	}
	return &TutorService{client: client, model: model, logger: logger}, nil
}

func (s *TutorService) Close() {
	s.client.Close()
}

func (s *TutorService) Reply(ctx context.Context, message string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", &RemoteServiceError{Service: "gemini", Message: err.Error()}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.Warn("gemini stopped early", "candidate", i, "reason", cand.FinishReason.String())
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", &RemoteServiceError{Service: "gemini", Message: "empty response"}
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
