package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"stoktakip/internal/domain"
)

const listingKeyPrefix = "stoktakip:products:"

type RedisProductListCache struct {
	client *redis.Client
}

func NewRedisProductListCache(addr string, password string, db int) *RedisProductListCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisProductListCache{client: client}
}

func (c *RedisProductListCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisProductListCache) Close() error {
	return c.client.Close()
}

func (c *RedisProductListCache) Get(ctx context.Context, key string) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, listingKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisProductListCache) Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error {
	if products == nil {
		return nil
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingKeyPrefix+key, payload, ttl).Err()
}

// Invalidate drops every cached listing. Listing keys vary by filter, so a
// catalog write cannot know which entries it made stale.
func (c *RedisProductListCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, listingKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
