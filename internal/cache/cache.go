package cache

import (
	"context"
	"time"

	"coffeeshop/backend/internal/domain"
)

type TrendCache interface {
	Get(ctx context.Context, key string) (*domain.TrendReport, bool, error)
	Set(ctx context.Context, key string, value *domain.TrendReport, ttl time.Duration) error
}

type NoopTrendCache struct{}

func (NoopTrendCache) Get(_ context.Context, _ string) (*domain.TrendReport, bool, error) {
	return nil, false, nil
}

func (NoopTrendCache) Set(_ context.Context, _ string, _ *domain.TrendReport, _ time.Duration) error {
	return nil
}
