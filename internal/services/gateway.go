package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"climatesage-backend/internal/config"
	"climatesage-backend/internal/models"
)

// Candidate is one model endpoint in the quiz fallback chain.
type Candidate struct {
	Version string
	Model   string
}

func (c Candidate) String() string { return c.Version + "/" + c.Model }

// ParseCandidates reads "version/model" descriptors.
func ParseCandidates(specs []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(specs))
	for _, s := range specs {
		version, model, ok := strings.Cut(strings.TrimSpace(s), "/")
		if !ok || version == "" || model == "" {
			return nil, fmt.Errorf("invalid model candidate %q, want version/model", s)
		}
		out = append(out, Candidate{Version: version, Model: model})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no model candidates configured")
	}
	return out, nil
}

// AttemptObserver is told about every quiz candidate outcome; err is nil on
// success.
type AttemptObserver func(attempt, total int, c Candidate, err error)

type Gateway struct {
	http         *http.Client
	chatEndpoint string
	chatToken    string
	geminiKey    string
	geminiBase   string
	candidates   []Candidate
	logger       *slog.Logger
}

// NewGateway builds the AI gateway client. Calls carry no timeout of their
// own; cancel through the context.
func NewGateway(cfg config.Gateway, httpClient *http.Client, logger *slog.Logger) (*Gateway, error) {
	candidates, err := ParseCandidates(cfg.QuizCandidates)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		http:         httpClient,
		chatEndpoint: cfg.ChatEndpoint,
		chatToken:    cfg.ChatAPIToken,
		geminiKey:    cfg.GeminiAPIKey,
		geminiBase:   strings.TrimRight(cfg.GeminiBaseURL, "/"),
		candidates:   candidates,
		logger:       logger,
	}, nil
}

func (g *Gateway) Candidates() []Candidate {
	return append([]Candidate(nil), g.candidates...)
}

// AskChat sends one message to the tutor chat function. No retry.
func (g *Gateway) AskChat(ctx context.Context, message string) (string, error) {
	body, _ := json.Marshal(map[string]string{"message": message})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.chatEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.chatToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", &RemoteServiceError{Service: "chat", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RemoteServiceError{Service: "chat", StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return "", &RemoteServiceError{Service: "chat", StatusCode: resp.StatusCode, Message: msg}
	}

	var out struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Response == nil {
		return "", &RemoteServiceError{Service: "chat", StatusCode: resp.StatusCode, Message: "malformed response"}
	}
	return *out.Response, nil
}

// GenerateQuiz returns the raw text of the first candidate model that
// answers. The text is untrusted; pass it through ParseQuiz.
func (g *Gateway) GenerateQuiz(ctx context.Context, prompt string) (string, error) {
	return g.GenerateQuizWithProgress(ctx, prompt, nil)
}

func (g *Gateway) GenerateQuizWithProgress(ctx context.Context, prompt string, observe AttemptObserver) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: BuildQuizPrompt(prompt)}},
		}},
		GenerationConfig: quizGenerationConfig,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode quiz request: %w", err)
	}

	total := len(g.candidates)
	return firstSuccess(ctx, g.candidates,
		func(ctx context.Context, c Candidate) (string, error) {
			return g.generateContent(ctx, c, body)
		},
		func(i int, c Candidate, err error) {
			if err != nil {
				g.logger.Warn("quiz model failed, trying next", "model", c.String(), "error", err)
			} else {
				g.logger.Info("quiz generated", "model", c.String(), "attempt", i+1)
			}
			if observe != nil {
				observe(i+1, total, c, err)
			}
		},
	)
}

// firstSuccess tries candidates strictly in order and returns the first
// success, or a FallbackError holding every failure.
func firstSuccess[C fmt.Stringer, R any](
	ctx context.Context,
	candidates []C,
	try func(context.Context, C) (R, error),
	observe func(i int, c C, err error),
) (R, error) {
	var zero R
	fallback := &FallbackError{}

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			fallback.Attempts = append(fallback.Attempts, CandidateFailure{Candidate: c.String(), Err: err})
			return zero, fallback
		}

		result, err := try(ctx, c)
		if observe != nil {
			observe(i, c, err)
		}
		if err == nil {
			return result, nil
		}
		fallback.Attempts = append(fallback.Attempts, CandidateFailure{Candidate: c.String(), Err: err})
	}
	return zero, fallback
}

func (g *Gateway) generateContent(ctx context.Context, c Candidate, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		g.geminiBase, url.PathEscape(c.Version), url.PathEscape(c.Model), url.QueryEscape(g.geminiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", c, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", &RemoteServiceError{Service: c.String(), Message: redactKey(err.Error(), g.geminiKey)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RemoteServiceError{Service: c.String(), StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return "", &RemoteServiceError{Service: c.String(), StatusCode: resp.StatusCode, Message: msg}
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &RemoteServiceError{Service: c.String(), StatusCode: resp.StatusCode, Message: "malformed response"}
	}
	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &RemoteServiceError{Service: c.String(), StatusCode: resp.StatusCode, Message: "response has no candidates"}
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == nil {
		return "", &RemoteServiceError{Service: c.String(), StatusCode: resp.StatusCode, Message: "response has no text"}
	}
	return *text, nil
}

func redactKey(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, url.QueryEscape(key), "REDACTED"), key, "REDACTED")
}

// BuildQuizPrompt embeds the user's topic into the fixed quiz instruction.
func BuildQuizPrompt(topic string) string {
	var b strings.Builder

	b.WriteString("You are ClimateSage, an expert climate science educator. Create a multiple-choice quiz about the following topic.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", models.QuizLength))
	b.WriteString(`
JSON schema per question:
{"question": "string", "options": ["string", "string", "string", "string"], "correctAnswer": int, "explanation": "string"}

Each question has exactly 4 distinct options. correctAnswer is the zero-based index of the correct option.
Explanations are one or two sentences a student can learn from.
`)
	b.WriteString("\n---TOPIC---\n")
	b.WriteString(topic)
	b.WriteString("\n---END---\n")

	return b.String()
}

var quizGenerationConfig = &geminiGenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 2048,
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}
