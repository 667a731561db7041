package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediband/api/internal/model"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mediband:sess:"

// RedisStore keeps sessions in Redis with a native key TTL, so expired
// sessions need no sweeping.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url, %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis, %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Put(ctx context.Context, s *model.Session, ttl time.Duration) error {
	key := redisKeyPrefix + s.TokenHash

	if ttl <= 0 {
		return r.client.Del(ctx, key).Err()
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, b, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, tokenHash string) (*model.Session, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("corrupt session entry, %w", err)
	}

	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	n, err := r.client.Del(ctx, redisKeyPrefix+tokenHash).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
