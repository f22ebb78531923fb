package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type QuizAttemptUpdate struct {
	Model   string `json:"model"`
	Attempt int    `json:"attempt"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

type SessionUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	Action    string    `json:"action"` // "created" | "updated" | "deleted"
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// FunctionError is the flat error body used by the function endpoints.
type FunctionError struct {
	Error string `json:"error"`
}

type ClientToken struct {
	ClientID uuid.UUID `json:"client_id"`
	Token    string    `json:"token"`
}

type SignedURLRequest struct {
	AgentType string `json:"agentType"`
}

type SignedURLResponse struct {
	SignedURL string `json:"signedUrl"`
}
