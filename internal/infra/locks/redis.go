package locks

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisService struct {
	client *redis.Client
}

// NewRedisService returns a lock service backed by redis SET NX with expiry,
// shared across instances.
func NewRedisService(addr, password string, db int) (Service, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisService{client: client}, nil
}

func (r *redisService) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, "1", ttl).Result()
}

func (r *redisService) Release(ctx context.Context, key string) (bool, error) {
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}
