package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"climatesage-backend/internal/services"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves the ?token= query parameter to a client id.
type TokenParser interface {
	ParseClientToken(token string) (uuid.UUID, error)
}

// Source yields the raw event payloads published for one client until ctx
// is cancelled.
type Source func(ctx context.Context, channel string) <-chan []byte

// RedisSource subscribes to a pub/sub channel.
func RedisSource(client *redis.Client) Source {
	return func(ctx context.Context, channel string) <-chan []byte {
		out := make(chan []byte)
		pubsub := client.Subscribe(ctx, channel)
		go func() {
			defer close(out)
			defer pubsub.Close()

			ch := pubsub.Channel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- []byte(msg.Payload):
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out
	}
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*conn
	cancelFuncs map[uuid.UUID]context.CancelFunc
	tokens      TokenParser
	source      Source
	logger      *slog.Logger
}

func NewHub(tokens TokenParser, source Source, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[uuid.UUID][]*conn),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		tokens:      tokens,
		source:      source,
		logger:      logger,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	clientID, err := h.tokens.ParseClientToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{ws: ws}
	h.register(clientID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(clientID, c)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(clientID uuid.UUID, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[clientID] = append(h.connections[clientID], c)

	// First connection for this client starts its subscription.
	if len(h.connections[clientID]) == 1 && h.source != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[clientID] = cancel
		go h.forward(ctx, clientID)
	}

	h.logger.Debug("websocket connected", "client_id", clientID, "connections", len(h.connections[clientID]))
}

func (h *Hub) unregister(clientID uuid.UUID, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.ws.Close()

	conns := h.connections[clientID]
	for i, existing := range conns {
		if existing == c {
			h.connections[clientID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[clientID]) == 0 {
		delete(h.connections, clientID)
		if cancel, ok := h.cancelFuncs[clientID]; ok {
			cancel()
			delete(h.cancelFuncs, clientID)
		}
	}

	h.logger.Debug("websocket disconnected", "client_id", clientID)
}

func (h *Hub) forward(ctx context.Context, clientID uuid.UUID) {
	for payload := range h.source(ctx, services.UpdatesChannel(clientID)) {
		h.broadcast(clientID, payload)
	}
}

func (h *Hub) broadcast(clientID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*conn(nil), h.connections[clientID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			h.logger.Debug("websocket write failed", "client_id", clientID, "error", err)
		}
	}
}

// SendToClient sends a message directly to a client (for use outside pub/sub)
func (h *Hub) SendToClient(clientID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(clientID, data)
}

// Connected reports how many live connections a client has.
func (h *Hub) Connected(clientID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[clientID])
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.connections {
		for _, c := range conns {
			c.ws.Close()
		}
		delete(h.connections, id)
	}
	for id, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, id)
	}
}
