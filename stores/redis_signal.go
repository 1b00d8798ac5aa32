package stores

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const DefaultSignalChannel = "privilege:roles-changed"

// RedisSignal broadcasts role catalog changes across nodes over Redis
// pub/sub. The payload carries no data; receivers reload the whole catalog
// from the role source, so a coalesced or missed message at worst delays a
// reload until the next edit.
type RedisSignal struct {
	client  *redis.Client
	channel string
}

func NewRedisSignal(client *redis.Client, channel string) *RedisSignal {
	if channel == "" {
		channel = DefaultSignalChannel
	}
	return &RedisSignal{client: client, channel: channel}
}

func (s *RedisSignal) Publish(ctx context.Context) error {
	return s.client.Publish(ctx, s.channel, "refresh").Err()
}

func (s *RedisSignal) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case events <- struct{}{}:
				default:
				}
			}
		}
	}()
	return events, nil
}
