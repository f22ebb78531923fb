package services

import (
	"strings"

	"climatesage-backend/internal/models"
)

var topicKeywords = []struct {
	topic    models.Topic
	keywords []string
}{
	{models.TopicRenewableEnergy, []string{"renewable", "solar", "wind", "energy"}},
	{models.TopicPolicy, []string{"paris", "agreement", "policy", "treaty"}},
	{models.TopicImpact, []string{"impact", "effect", "consequence", "damage"}},
}

// ClassifyTopic labels free text by the first keyword set it matches.
func ClassifyTopic(text string) models.Topic {
	lower := strings.ToLower(text)
	for _, set := range topicKeywords {
		if containsAny(lower, set.keywords) {
			return set.topic
		}
	}
	return models.TopicClimateScience
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
