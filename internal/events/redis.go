package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"go-popup-ledger/internal/model"
)

// RedisPublisher forwards events to a pub/sub channel so other service
// instances can push them to their own websocket clients.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event model.EventLog) error {
	payload, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}

// Subscribe relays messages from the channel to fn until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, fn func(payload []byte)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn([]byte(msg.Payload))
		}
	}
}
