package callback

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel step updates are relayed on.
const DefaultRedisChannel = "steptracker:steps:broadcast"

// RedisHandle relays step updates onto a Redis pub/sub channel.
type RedisHandle struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// ConnectRedis returns nil when addr is empty.
func ConnectRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// NewRedisHandle creates a handle publishing on channel.
func NewRedisHandle(client *redis.Client, channel string, timeout time.Duration) *RedisHandle {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisHandle{client: client, channel: channel, timeout: timeout}
}

// OnStepUpdate implements subscriber.Handle.
func (r *RedisHandle) OnStepUpdate(ctx context.Context, count int64) error {
	payload, err := encodeStepCount(count)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Close closes the Redis client.
func (r *RedisHandle) Close() error {
	return r.client.Close()
}
