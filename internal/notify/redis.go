package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// publishTimeout bounds a single publish round-trip.
const publishTimeout = 5 * time.Second

// RedisBroker routes clique events through redis pub/sub so that every
// server instance sees every event.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to redis and verifies the connection.
func NewRedisBroker(ctx context.Context, addr, password string, db int) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify: redis ping: %w", errPing)
	}
	return &RedisBroker{client: client}, nil
}

// Close releases the redis connection.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

// channelName maps a clique id onto its redis channel.
func channelName(cliqueID string) string {
	return "clique:" + cliqueID
}

// Publish sends the event on the clique's redis channel.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	data, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		return fmt.Errorf("notify: marshal event: %w", errMarshal)
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if errPublish := b.client.Publish(pubCtx, channelName(event.CliqueID), data).Err(); errPublish != nil {
		return fmt.Errorf("notify: publish: %w", errPublish)
	}
	return nil
}

// Subscribe listens on the clique's redis channel and decodes events.
func (b *RedisBroker) Subscribe(ctx context.Context, cliqueID string) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelName(cliqueID))
	if _, errReceive := pubsub.Receive(ctx); errReceive != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("notify: subscribe: %w", errReceive)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event Event
			if errUnmarshal := json.Unmarshal([]byte(msg.Payload), &event); errUnmarshal != nil {
				log.WithError(errUnmarshal).Warn("notify: drop undecodable event")
				continue
			}
			select {
			case out <- event:
			default:
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}
