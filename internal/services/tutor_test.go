package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{"joins text parts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("CO2 traps "), genai.Blob{MIMEType: "image/png"}, genai.Text("heat.")}},
		}}}, "CO2 traps heat."},
	}

	for _, tc := range tests {
		if got := extractText(tc.resp); got != tc.want {
			t.Errorf("%s: extractText() = %q, want %q", tc.name, got, tc.want)
		}
	}
}
