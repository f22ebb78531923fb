package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"climatesage-backend/internal/models"
)

const (
	optionsPerQuestion    = 4
	minOptionsPerQuestion = 2
)

// ParseQuiz turns raw model output into at most five questions, skipping
// elements that are not objects or offer fewer than two options. Parse
// failures and empty results are QuizGenerationErrors; there is no partial
// recovery.
func ParseQuiz(raw string) ([]models.QuizQuestion, error) {
	text := stripCodeFence(raw)

	var parsed interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, &QuizGenerationError{Message: "response is not valid JSON", Err: err}
	}

	items, ok := parsed.([]interface{})
	if !ok {
		// Some models wrap the array: {"questions": [...]}
		obj, isObj := parsed.(map[string]interface{})
		if !isObj {
			return nil, &QuizGenerationError{Message: "expected a JSON array of questions"}
		}
		if items, ok = obj["questions"].([]interface{}); !ok {
			return nil, &QuizGenerationError{Message: "expected a JSON array of questions"}
		}
	}

	questions := make([]models.QuizQuestion, 0, models.QuizLength)
	for _, item := range items {
		if len(questions) == models.QuizLength {
			break
		}
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		// A question needs a choice to be answerable.
		options := normalizeOptions(obj["options"])
		if len(options) < minOptionsPerQuestion {
			continue
		}
		q := models.QuizQuestion{
			ID:          len(questions) + 1,
			Question:    asString(obj["question"]),
			Options:     options,
			Explanation: asString(obj["explanation"]),
		}
		q.CorrectAnswer = clampAnswer(firstPresent(obj, "correctAnswer", "correct_answer", "correct_index"), len(q.Options))
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, &QuizGenerationError{Message: "no questions generated"}
	}
	return questions, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimLeftFunc(s[3:], unicode.IsLetter)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeOptions(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	if len(list) > optionsPerQuestion {
		list = list[:optionsPerQuestion]
	}
	options := make([]string, len(list))
	for i, o := range list {
		options[i] = asString(o)
	}
	return options
}

// clampAnswer floors the model's answer index and falls back to 0 when it
// is not a number or lies outside the available options.
func clampAnswer(v interface{}, optionCount int) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	f = math.Floor(f)
	upper := min(optionsPerQuestion, optionCount)
	if math.IsNaN(f) || f < 0 || f >= float64(upper) {
		return 0
	}
	return int(f)
}

func firstPresent(obj map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
