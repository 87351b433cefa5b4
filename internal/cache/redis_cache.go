package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"coffeeshop/backend/internal/domain"
)

type RedisTrendCache struct {
	client *redis.Client
}

func NewRedisTrendCache(addr string, password string, db int) *RedisTrendCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisTrendCache{client: client}
}

func (c *RedisTrendCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisTrendCache) Close() error {
	return c.client.Close()
}

func (c *RedisTrendCache) Get(ctx context.Context, key string) (*domain.TrendReport, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report domain.TrendReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *RedisTrendCache) Set(ctx context.Context, key string, value *domain.TrendReport, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
