package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository persists carts.
type Repository interface {
	Load(ctx context.Context, userID string) ([]LineItem, error)
	Save(ctx context.Context, userID string, items []LineItem) error
}

// RedisRepository keeps each cart as one JSON document.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository constructs a RedisRepository. Carts idle for ttl expire.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Load returns the stored lines; a missing cart is empty.
func (r *RedisRepository) Load(ctx context.Context, userID string) ([]LineItem, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	var items []LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("cart: decode: %w", err)
	}
	return items, nil
}

// Save replaces the stored cart. An empty cart deletes the key.
func (r *RedisRepository) Save(ctx context.Context, userID string, items []LineItem) error {
	if len(items) == 0 {
		if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
			return fmt.Errorf("cart: clear: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

func redisKey(userID string) string {
	return "tickethub:cart:" + userID
}
