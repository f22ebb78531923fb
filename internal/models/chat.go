package models

import (
	"time"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicClimateScience  Topic = "Climate Science"
	TopicRenewableEnergy Topic = "Renewable Energy"
	TopicPolicy          Topic = "Policy"
	TopicImpact          Topic = "Impact"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChartPoint is one sample of the atmospheric CO2 trend chart.
type ChartPoint struct {
	Year int     `json:"year"`
	CO2  float64 `json:"co2"`
}

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	ID        uuid.UUID    `json:"id"`
	Role      string       `json:"role"` // "user" or "assistant"
	Text      string       `json:"text"`
	Topic     *Topic       `json:"topic,omitempty"`
	ChartData []ChartPoint `json:"chart_data,omitempty"`
	AudioURL  *string      `json:"audio_url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type ChatSession struct {
	ID             uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	Messages       []ChatMessage `json:"messages"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ConversationID *string       `json:"conversation_id,omitempty"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply from the tutor chat function.
type ChatResponse struct {
	Response string `json:"response"`
}

type RenameSessionRequest struct {
	Title string `json:"title"`
}

type ClassifyRequest struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

type ClassifyResponse struct {
	Topic     Topic `json:"topic"`
	ShowChart bool  `json:"show_chart"`
}

// SendMessageResponse carries both turns appended by one send.
type SendMessageResponse struct {
	SessionID uuid.UUID    `json:"session_id"`
	User      ChatMessage  `json:"user"`
	Assistant ChatMessage  `json:"assistant"`
	Session   *ChatSession `json:"session"`
}

type SessionListResponse struct {
	Sessions         []ChatSession `json:"sessions"`
	CurrentSessionID *uuid.UUID    `json:"current_session_id"`
}
