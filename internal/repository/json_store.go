package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	ChatSessionsNamespace = "climatesage_chat_sessions"
	QuizHistoryNamespace  = "climatesage_quiz_history"
)

// StorageCorruptionError means a stored blob could not be read back.
// It is logged and treated as "no prior data".
type StorageCorruptionError struct {
	Key string
	Err error
}

func (e *StorageCorruptionError) Error() string {
	return fmt.Sprintf("corrupt stored data at %s: %v", e.Key, e.Err)
}

func (e *StorageCorruptionError) Unwrap() error { return e.Err }

// JSONStore persists a whole collection of records as one JSON array per
// client, overwriting it on every save.
type JSONStore[T any] struct {
	kv        KeyValue
	namespace string
	logger    *slog.Logger
}

func NewJSONStore[T any](kv KeyValue, namespace string, logger *slog.Logger) *JSONStore[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONStore[T]{kv: kv, namespace: namespace, logger: logger}
}

func (s *JSONStore[T]) key(clientID uuid.UUID) string {
	return s.namespace + ":" + clientID.String()
}

// LoadAll returns the client's collection. Missing or corrupt data yields an
// empty collection; only a failed read is reported, so callers never mistake
// an unreachable backend for "no prior data".
func (s *JSONStore[T]) LoadAll(ctx context.Context, clientID uuid.UUID) ([]T, error) {
	key := s.key(clientID)

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return []T{}, fmt.Errorf("failed to read %s: %w", s.namespace, err)
	}
	if !found || raw == "" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Error("ignoring stored collection", "error", &StorageCorruptionError{Key: key, Err: err})
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (s *JSONStore[T]) SaveAll(ctx context.Context, clientID uuid.UUID, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.namespace, err)
	}
	if err := s.kv.Set(ctx, s.key(clientID), string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.namespace, err)
	}
	return nil
}
