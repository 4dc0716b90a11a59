package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Envelope is the message published for every real-time event.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sentAt"`
}

// RedisNotifier publishes events on a redis Pub/Sub channel. Subscribers
// (websocket gateways, the frontend realtime bridge) fan them out to clients.
type RedisNotifier struct {
	rc      *redis.Client
	channel string
}

// NewRedisNotifier publishes on channel; a nil client drops every event.
func NewRedisNotifier(rc *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{rc: rc, channel: channel}
}

// Emit publishes event with payload. It never blocks longer than two seconds.
func (n *RedisNotifier) Emit(ctx context.Context, event string, payload interface{}) error {
	if n == nil || n.rc == nil {
		return nil
	}
	if n.channel == "" {
		return errors.New("notifier channel not configured")
	}
	b, err := json.Marshal(Envelope{Event: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return n.rc.Publish(ctx, n.channel, b).Err()
}
