package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"climatesage-backend/internal/handlers"
	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/websocket"
)

type Handlers struct {
	Clients   *handlers.ClientHandler
	Chat      *handlers.ChatHandler
	Quiz      *handlers.QuizHandler
	Functions *handlers.FunctionsHandler
}

type Options struct {
	FrontendURL      string
	FunctionsToken   string
	AIRequestsPerMin int
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(opts.FrontendURL))

	// Client registration (10 req/min per IP)
	clientLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Anything that calls a model or a speech API
	aiLimiter := middleware.NewRateLimiter(opts.AIRequestsPerMin, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Clients (public) ────
		r.With(clientLimiter.Middleware).Post("/clients", h.Clients.Create)

		// ──── Helpers (public, pure) ────
		r.Post("/classify", h.Chat.Classify)

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/sessions", h.Chat.ListSessions)
			r.Post("/sessions", h.Chat.CreateSession)
			r.Get("/sessions/{id}", h.Chat.GetSession)
			r.Put("/sessions/{id}", h.Chat.RenameSession)
			r.Delete("/sessions/{id}", h.Chat.DeleteSession)
			r.Post("/sessions/{id}/select", h.Chat.SelectSession)
			r.With(aiLimiter.Middleware).Post("/messages", h.Chat.SendMessage)
		})

		// ──── Quiz Routes ────
		r.Route("/quizzes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.With(aiLimiter.Middleware).Post("/generate", h.Quiz.Generate)
			r.Get("/active", h.Quiz.Active)
			r.Post("/{id}/answer", h.Quiz.Answer)
			r.Post("/{id}/finish", h.Quiz.Finish)
			r.Get("/history", h.Quiz.History)
			r.Delete("/history/{id}", h.Quiz.DeleteHistory)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	// ──── Functions (shared bearer token) ────
	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(middleware.StaticBearer(opts.FunctionsToken))
		r.Use(aiLimiter.Middleware)
		r.Post("/climate-chat", h.Functions.ClimateChat)
		r.Post("/speech-to-text", h.Functions.SpeechToText)
		r.Post("/get-elevenlabs-url", h.Functions.ElevenLabsURL)
	})

	return r
}
