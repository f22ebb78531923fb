package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"climatesage-backend/internal/models"
	"climatesage-backend/internal/repository"
)

const (
	titleMaxRunes = 30
	defaultTitle  = "New Chat"
)

// Asker is the chat side of the AI gateway.
type Asker interface {
	AskChat(ctx context.Context, message string) (string, error)
}

// chatState is what a client's chat keeps between requests. Sessions
// themselves are re-read from the store on every operation. generation
// changes whenever the current session is switched or removed, so replies
// that were requested against an older view are discarded.
type chatState struct {
	started    bool
	currentID  uuid.UUID
	generation uint64
}

type ChatService struct {
	store     *repository.JSONStore[models.ChatSession]
	asker     Asker
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	clients *clientStates[chatState]
}

func NewChatService(store *repository.JSONStore[models.ChatSession], asker Asker, publisher Publisher, logger *slog.Logger) *ChatService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		store:     store,
		asker:     asker,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		clients:   newClientStates[chatState](ClientIdleTTL),
	}
}

// load reads the client's sessions. Callers hold e.mu. On first use the
// current session is the most recently updated one; if the current session
// has disappeared from storage the choice is made again.
func (s *ChatService) load(ctx context.Context, clientID uuid.UUID, st *chatState) ([]models.ChatSession, error) {
	sessions, err := s.store.LoadAll(ctx, clientID)
	if err != nil {
		s.logger.Error("failed to load chat sessions", "client_id", clientID, "error", err)
		return nil, err
	}

	switch {
	case !st.started:
		st.currentID = latestID(sessions)
		st.started = true
	case st.currentID != uuid.Nil && indexOf(sessions, st.currentID) < 0:
		st.currentID = latestID(sessions)
		st.generation++
	}
	return sessions, nil
}

// changed is the on-change hook: every mutation rewrites the whole
// collection and notifies the client's live connections.
func (s *ChatService) changed(ctx context.Context, clientID uuid.UUID, sessions []models.ChatSession, sessionID uuid.UUID, action string) error {
	if err := s.store.SaveAll(ctx, clientID, sessions); err != nil {
		s.logger.Error("failed to persist chat sessions", "client_id", clientID, "error", err)
		return err
	}
	s.publisher.Publish(ctx, clientID, models.WSMessage{
		Type:    "session_update",
		Payload: models.SessionUpdate{SessionID: sessionID, Action: action},
	})
	return nil
}

// Sessions lists sessions by last update, newest first, plus the current id.
// An unreadable store yields an empty list.
func (s *ChatService) Sessions(ctx context.Context, clientID uuid.UUID) ([]models.ChatSession, uuid.UUID) {
	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return []models.ChatSession{}, uuid.Nil
	}

	out := make([]models.ChatSession, len(sessions))
	for i := range sessions {
		out[i] = cloneSession(sessions[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, e.state.currentID
}

func (s *ChatService) Get(ctx context.Context, clientID, sessionID uuid.UUID) (*models.ChatSession, error) {
	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return nil, err
	}
	i := indexOf(sessions, sessionID)
	if i < 0 {
		return nil, &NotFoundError{Message: "Chat session not found"}
	}
	session := cloneSession(sessions[i])
	return &session, nil
}

func (s *ChatService) Current(ctx context.Context, clientID uuid.UUID) (*models.ChatSession, error) {
	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return nil, err
	}
	i := indexOf(sessions, e.state.currentID)
	if i < 0 {
		return nil, &NotFoundError{Message: "No active chat session"}
	}
	session := cloneSession(sessions[i])
	return &session, nil
}

// NewChat starts an empty session and makes it current.
func (s *ChatService) NewChat(ctx context.Context, clientID uuid.UUID) (*models.ChatSession, error) {
	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return nil, err
	}
	session := s.newSession("")
	if err := s.changed(ctx, clientID, append(sessions, session), session.ID, "created"); err != nil {
		return nil, err
	}
	e.state.currentID = session.ID
	e.state.generation++

	out := cloneSession(session)
	return &out, nil
}

func (s *ChatService) Select(ctx context.Context, clientID, sessionID uuid.UUID) (*models.ChatSession, error) {
	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return nil, err
	}
	i := indexOf(sessions, sessionID)
	if i < 0 {
		return nil, &NotFoundError{Message: "Chat session not found"}
	}
	if e.state.currentID != sessionID {
		e.state.currentID = sessionID
		e.state.generation++
	}
	session := cloneSession(sessions[i])
	return &session, nil
}

func (s *ChatService) Delete(ctx context.Context, clientID, sessionID uuid.UUID) error {
	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return err
	}
	i := indexOf(sessions, sessionID)
	if i < 0 {
		return &NotFoundError{Message: "Chat session not found"}
	}
	remaining := append(sessions[:i:i], sessions[i+1:]...)
	if err := s.changed(ctx, clientID, remaining, sessionID, "deleted"); err != nil {
		return err
	}

	if e.state.currentID == sessionID {
		e.state.currentID = latestID(remaining)
		e.state.generation++
	}
	return nil
}

func (s *ChatService) Rename(ctx context.Context, clientID, sessionID uuid.UUID, title string) (*models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Fields: map[string]string{"title": "Title is required"}}
	}

	e := s.clients.hold(clientID)
	defer s.clients.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return nil, err
	}
	i := indexOf(sessions, sessionID)
	if i < 0 {
		return nil, &NotFoundError{Message: "Chat session not found"}
	}
	sessions[i].Title = title
	if err := s.changed(ctx, clientID, sessions, sessionID, "updated"); err != nil {
		return nil, err
	}
	session := cloneSession(sessions[i])
	return &session, nil
}

// Send appends the user's turn to the current session (creating one if
// needed), asks the tutor and appends the reply. If the current session
// changed while waiting, the reply is dropped and ErrStaleResponse returned.
func (s *ChatService) Send(ctx context.Context, clientID uuid.UUID, text string) (*models.SendMessageResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}
	topic := ClassifyTopic(text)

	e := s.clients.hold(clientID)
	defer s.clients.release(e)

	userMsg := models.ChatMessage{
		ID:        uuid.New(),
		Role:      models.RoleUser,
		Text:      text,
		Topic:     &topic,
		CreatedAt: s.now(),
	}
	sessionID, generation, err := s.appendUserTurn(ctx, clientID, e, userMsg)
	if err != nil {
		return nil, err
	}

	reply, err := s.asker.AskChat(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to get tutor reply: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return nil, err
	}
	i := indexOf(sessions, sessionID)
	if e.state.generation != generation || e.state.currentID != sessionID || i < 0 {
		s.logger.Info("discarding stale tutor reply", "client_id", clientID, "session_id", sessionID)
		return nil, ErrStaleResponse
	}

	assistantMsg := models.ChatMessage{
		ID:        uuid.New(),
		Role:      models.RoleAssistant,
		Text:      reply,
		Topic:     &topic,
		CreatedAt: s.now(),
	}
	if ShouldShowChart(text, topic, reply) {
		assistantMsg.ChartData = CO2Series()
	}

	session := &sessions[i]
	session.Messages = append(session.Messages, assistantMsg)
	session.UpdatedAt = assistantMsg.CreatedAt
	if err := s.changed(ctx, clientID, sessions, sessionID, "updated"); err != nil {
		return nil, err
	}

	out := cloneSession(*session)
	return &models.SendMessageResponse{
		SessionID: sessionID,
		User:      userMsg,
		Assistant: assistantMsg,
		Session:   &out,
	}, nil
}

// appendUserTurn stores msg in the current session, starting one if there is
// none, and returns the session id and generation the reply must match.
func (s *ChatService) appendUserTurn(ctx context.Context, clientID uuid.UUID, e *clientEntry[chatState], msg models.ChatMessage) (uuid.UUID, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := s.load(ctx, clientID, &e.state)
	if err != nil {
		return uuid.Nil, 0, err
	}

	currentID, generation := e.state.currentID, e.state.generation
	i := indexOf(sessions, currentID)
	if i < 0 {
		sessions = append(sessions, s.newSession(msg.Text))
		i = len(sessions) - 1
		currentID = sessions[i].ID
		generation++
	} else if len(sessions[i].Messages) == 0 {
		sessions[i].Title = DeriveTitle(msg.Text)
	}
	sessions[i].Messages = append(sessions[i].Messages, msg)
	sessions[i].UpdatedAt = msg.CreatedAt

	if err := s.changed(ctx, clientID, sessions, currentID, "updated"); err != nil {
		return uuid.Nil, 0, err
	}
	e.state.currentID, e.state.generation = currentID, generation
	return currentID, generation, nil
}

func (s *ChatService) newSession(firstMessage string) models.ChatSession {
	now := s.now()
	return models.ChatSession{
		ID:        uuid.New(),
		Title:     DeriveTitle(firstMessage),
		Messages:  []models.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTitle names a session after its first message: up to 30 characters
// verbatim, longer ones cut to 30 plus "...".
func DeriveTitle(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if text == "" {
		return defaultTitle
	}
	runes := []rune(text)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes]) + "..."
	}
	return text
}

func indexOf(sessions []models.ChatSession, id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// latestID is the most recently updated session, or uuid.Nil.
func latestID(sessions []models.ChatSession) uuid.UUID {
	var latest *models.ChatSession
	for i := range sessions {
		if latest == nil || sessions[i].UpdatedAt.After(latest.UpdatedAt) {
			latest = &sessions[i]
		}
	}
	if latest == nil {
		return uuid.Nil
	}
	return latest.ID
}

func cloneSession(s models.ChatSession) models.ChatSession {
	s.Messages = append([]models.ChatMessage(nil), s.Messages...)
	if s.Messages == nil {
		s.Messages = []models.ChatMessage{}
	}
	return s
}
