package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisProvider keeps each snapshot under its own key. The TTL is refreshed
// on every write so an abandoned session expires on its own.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProvider(client *redis.Client, ttl time.Duration) *RedisProvider {
	return &RedisProvider{
		client: client,
		ttl:    ttl,
	}
}

func (p *RedisProvider) Slot(sessionID string) CartSlot {
	return &redisSlot{client: p.client, ttl: p.ttl, key: snapshotKey(sessionID)}
}

type redisSlot struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

func (r *redisSlot) Read(ctx context.Context) ([]domain.LineItem, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return items, nil
}

func (r *redisSlot) Write(ctx context.Context, items []domain.LineItem) error {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
