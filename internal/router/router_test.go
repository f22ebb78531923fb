package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"climatesage-backend/internal/handlers"
	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/models"
	"climatesage-backend/internal/repository"
	"climatesage-backend/internal/services"
	"climatesage-backend/internal/websocket"
)

type echoTutor struct{}

func (echoTutor) Reply(_ context.Context, msg string) (string, error) { return "echo: " + msg, nil }

func newTestHandler(t *testing.T) (http.Handler, *middleware.JWTAuth) {
	t.Helper()
	jwtAuth := middleware.NewJWTAuth("secret")
	kv := repository.NewMemoryKV()
	chat := services.NewChatService(repository.NewJSONStore[models.ChatSession](kv, repository.ChatSessionsNamespace, nil), nil, nil, nil)
	quiz := services.NewQuizService(repository.NewJSONStore[models.QuizHistoryEntry](kv, repository.QuizHistoryNamespace, nil), nil, nil, nil)
	voice := services.NewElevenLabsService(nil, "http://127.0.0.1:1", "", "", "")

	h := New(jwtAuth, Handlers{
		Clients:   handlers.NewClientHandler(jwtAuth),
		Chat:      handlers.NewChatHandler(chat),
		Quiz:      handlers.NewQuizHandler(quiz),
		Functions: handlers.NewFunctionsHandler(echoTutor{}, voice, nil),
	}, websocket.NewHub(jwtAuth, nil, nil), Options{FunctionsToken: "anon", AIRequestsPerMin: 100})
	return h, jwtAuth
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_ChatRequiresClientToken(t *testing.T) {
	h, jwtAuth := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	token, _ := jwtAuth.GenerateClientToken(uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":[],"current_session_id":null}`, rec.Body.String())
}

func TestRouter_FunctionsRequireBearer(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/climate-chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/climate-chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer anon")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"echo: hi"}`, rec.Body.String())
}

func TestRouter_Preflight(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/speech-to-text", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ClientTokensLimitedPerHost(t *testing.T) {
	h, _ := newTestHandler(t)

	created := 0
	for i := 0; i < 15; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil)
		req.RemoteAddr = fmt.Sprintf("203.0.113.9:%d", 40000+i)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
	assert.Equal(t, 10, created)
}
