package services

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

// RemoteServiceError is a non-2xx status or a malformed envelope from an
// upstream API.
type RemoteServiceError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Service, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// QuizGenerationError means the model output could not be turned into
// questions. No partial quiz is ever returned with it.
type QuizGenerationError struct {
	Message string
	Err     error
}

func (e *QuizGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quiz generation failed: %s: %v", e.Message, e.Err)
	}
	return "quiz generation failed: " + e.Message
}

func (e *QuizGenerationError) Unwrap() error { return e.Err }

// MediaAccessError means no usable audio was provided.
type MediaAccessError struct{ Message string }

func (e *MediaAccessError) Error() string { return e.Message }

// ConfigError means a required credential is not configured.
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return e.Message }

// FallbackError collects every failed candidate of a fallback chain.
// Unwrap yields the last failure.
type FallbackError struct {
	Attempts []CandidateFailure
}

type CandidateFailure struct {
	Candidate string
	Err       error
}

func (e *FallbackError) Error() string {
	if len(e.Attempts) == 0 {
		return "all models failed"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Candidate, a.Err)
	}
	return "all models failed: " + strings.Join(parts, "; ")
}

func (e *FallbackError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

var ErrStaleResponse = errors.New("response discarded: the session changed while waiting for the tutor")
