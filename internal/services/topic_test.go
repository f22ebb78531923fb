package services

import (
	"testing"

	"climatesage-backend/internal/models"
)

func TestClassifyTopic(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.Topic
	}{
		{"solar energy", "Tell me about solar energy", models.TopicRenewableEnergy},
		{"paris agreement", "What is the Paris Agreement?", models.TopicPolicy},
		{"default", "random question", models.TopicClimateScience},
		{"impact", "What damage do floods cause?", models.TopicImpact},
		{"case insensitive", "WIND TURBINES", models.TopicRenewableEnergy},
		{"renewable wins over policy", "energy policy in Europe", models.TopicRenewableEnergy},
		{"policy wins over impact", "effect of the treaty", models.TopicPolicy},
		{"empty", "", models.TopicClimateScience},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyTopic(tc.text); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
