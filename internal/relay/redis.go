package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
)

// RedisRegistry backs room reservations with Redis so several relay
// instances can share one code space. Reservations carry a TTL as a guard
// against a relay that died without releasing its rooms.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		ttl:    ttl,
	}
}

func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (that *RedisRegistry) Reserve(ctx context.Context, code string) error {
	ok, err := that.client.SetNX(ctx, roomKey(code), "1", that.ttl).Result()
	if err != nil {
		return fmt.Errorf("could not reserve room: %w", err)
	}

	if !ok {
		return apperror.ErrRoomTaken
	}

	return nil
}

func (that *RedisRegistry) Release(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("could not release room: %w", err)
	}

	return nil
}

func roomKey(code string) string {
	return "room:" + code
}
