// Package notify delivers user-facing notifications over Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is the payload pushed to a user's channel.
type Message struct {
	NotificationID string    `json:"notification_id,omitempty"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Body           string    `json:"message"`
	TicketID       *string   `json:"ticket_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Pusher sends a message to one user. Delivery is fire-and-forget.
type Pusher interface {
	Push(ctx context.Context, userID string, msg Message) error
}

// RedisPusher publishes messages on "<prefix>:<user_id>".
type RedisPusher struct {
	client *redis.Client
	prefix string
}

// NewRedisPusher builds a pusher. A nil client disables pushing.
func NewRedisPusher(client *redis.Client, prefix string) *RedisPusher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPusher{client: client, prefix: prefix}
}

// Channel returns the channel a user subscribes to.
func (p *RedisPusher) Channel(userID string) string {
	return p.prefix + ":" + userID
}

// Push publishes msg as JSON.
func (p *RedisPusher) Push(ctx context.Context, userID string, msg Message) error {
	if p == nil || p.client == nil {
		return errors.New("redis client not configured")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return p.client.Publish(ctx, p.Channel(userID), body).Err()
}
