// Package cache provides an optional read cache for catalog listings. The
// store stays the source of truth; every catalog write invalidates the whole
// listing keyspace.
package cache

import (
	"context"
	"time"

	"stoktakip/internal/domain"
)

type ProductListCache interface {
	Get(ctx context.Context, key string) ([]domain.Product, bool, error)
	Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopProductListCache struct{}

func (NoopProductListCache) Get(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductListCache) Set(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopProductListCache) Invalidate(_ context.Context) error {
	return nil
}
