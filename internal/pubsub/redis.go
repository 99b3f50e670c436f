// Package pubsub fans live updates out across server instances through Redis.
// Every instance publishes to one channel and delivers what it receives to
// its local websocket hub, so a client sees updates made on any instance.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/services"
)

// DefaultChannel is the Redis channel live updates travel on
const DefaultChannel = "pizzarate:live"

const publishTimeout = 2 * time.Second

// Fanout publishes messages to Redis and forwards received ones to a local broadcaster
type Fanout struct {
	log     logger.Logger
	client  *redis.Client
	channel string
	local   services.Broadcaster
}

var _ services.Broadcaster = (*Fanout)(nil)

// NewClient connects to the Redis server at redisURL and checks it responds
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// New creates a Fanout. An empty channel uses DefaultChannel.
func New(log logger.Logger, client *redis.Client, channel string, local services.Broadcaster) *Fanout {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Fanout{log: log, client: client, channel: channel, local: local}
}

// Publish sends msg to every instance. If Redis is unreachable the message is
// still delivered to local clients.
func (f *Fanout) Publish(msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		f.log.Error("Failed to encode live update", "type", msg.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		f.log.Warn("Redis publish failed, delivering locally", "type", msg.Type, "error", err)
		f.local.Publish(msg)
	}
}

// Start subscribes to the channel and forwards messages until ctx is done.
// It returns once the subscription is confirmed.
func (f *Fanout) Start(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("redis subscribe failed: %w", err)
	}

	go f.forward(ctx, sub)
	f.log.Info("Live update fan-out started", "channel", f.channel)
	return nil
}

func (f *Fanout) forward(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg models.WSMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				f.log.Warn("Dropping malformed live update", "error", err)
				continue
			}
			f.local.Publish(msg)
		}
	}
}
