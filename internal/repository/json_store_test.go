package repository

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatesage-backend/internal/models"
)

func newTestStore(t *testing.T) (*JSONStore[models.ChatSession], *MemoryKV, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	kv := NewMemoryKV()
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return NewJSONStore[models.ChatSession](kv, ChatSessionsNamespace, logger), kv, &logs
}

func TestJSONStore_RoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	clientID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	sessions := []models.ChatSession{
		{
			ID:    uuid.New(),
			Title: "What is CO2?",
			Messages: []models.ChatMessage{
				{ID: uuid.New(), Role: models.RoleUser, Text: "What is CO2?", CreatedAt: now},
				{ID: uuid.New(), Role: models.RoleAssistant, Text: "A gas.", ChartData: []models.ChartPoint{{Year: 2020, CO2: 414.21}}, CreatedAt: now},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{ID: uuid.New(), Title: "New Chat", CreatedAt: now, UpdatedAt: now},
	}

	require.NoError(t, store.SaveAll(ctx, clientID, sessions))
	loaded, err := store.LoadAll(ctx, clientID)
	require.NoError(t, err)

	require.Len(t, loaded, 2)
	for i := range sessions {
		assert.Equal(t, sessions[i].ID, loaded[i].ID)
		require.Len(t, loaded[i].Messages, len(sessions[i].Messages))
		for j := range sessions[i].Messages {
			assert.Equal(t, sessions[i].Messages[j].Text, loaded[i].Messages[j].Text)
			assert.Equal(t, sessions[i].Messages[j].ChartData, loaded[i].Messages[j].ChartData)
		}
	}
}

func TestJSONStore_MissingKey(t *testing.T) {
	store, _, _ := newTestStore(t)
	loaded, err := store.LoadAll(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestJSONStore_CorruptData(t *testing.T) {
	store, kv, logs := newTestStore(t)
	ctx := context.Background()
	clientID := uuid.New()

	require.NoError(t, kv.Set(ctx, ChatSessionsNamespace+":"+clientID.String(), "{not json"))

	loaded, err := store.LoadAll(ctx, clientID)
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Contains(t, logs.String(), "corrupt stored data")
}

func TestJSONStore_ClientsAreIsolated(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, store.SaveAll(ctx, a, []models.ChatSession{{ID: uuid.New(), Title: "a"}}))
	other, err := store.LoadAll(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, other)
	own, err := store.LoadAll(ctx, a)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestJSONStore_SaveOverwrites(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	clientID := uuid.New()

	require.NoError(t, store.SaveAll(ctx, clientID, []models.ChatSession{{ID: uuid.New()}, {ID: uuid.New()}}))
	require.NoError(t, store.SaveAll(ctx, clientID, nil))
	loaded, err := store.LoadAll(ctx, clientID)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}
func (failingKV) Set(context.Context, string, string) error { return errors.New("connection refused") }

func TestJSONStore_BackendErrors(t *testing.T) {
	store := NewJSONStore[models.QuizHistoryEntry](failingKV{}, QuizHistoryNamespace, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ctx := context.Background()

	loaded, err := store.LoadAll(ctx, uuid.New())
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, loaded)
	assert.ErrorContains(t, store.SaveAll(ctx, uuid.New(), nil), "connection refused")
}

func TestNewKeyValue(t *testing.T) {
	kv, err := NewKeyValue("memory", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	_, err = NewKeyValue("redis", nil, nil)
	assert.Error(t, err)

	_, err = NewKeyValue("postgres", nil, nil)
	assert.Error(t, err)

	_, err = NewKeyValue("floppy", nil, nil)
	assert.Error(t, err)
}
