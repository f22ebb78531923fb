package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"climatesage-backend/internal/models"
)

// Publisher delivers live events to a client's websocket connections.
type Publisher interface {
	Publish(ctx context.Context, clientID uuid.UUID, msg models.WSMessage)
}

// UpdatesChannel is the pub/sub channel the websocket hub subscribes to.
func UpdatesChannel(clientID uuid.UUID) string {
	return fmt.Sprintf("client_updates:%s", clientID.String())
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

// Publish sends a WebSocket update via Redis pub/sub
func (p *RedisPublisher) Publish(ctx context.Context, clientID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	p.redis.Publish(ctx, UpdatesChannel(clientID), string(data))
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, uuid.UUID, models.WSMessage) {}
