package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"farm-marketplace/models"
)

// ProductCache is a cache-aside layer for public product reads. Writes to
// the catalog invalidate the key; a miss falls through to MySQL.
type ProductCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewProductCache(addr string, ttl time.Duration) *ProductCache {
	return &ProductCache{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		TTL:    ttl,
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (pc *ProductCache) Get(ctx context.Context, id int64) (models.Product, bool, error) {
	value, err := pc.Client.Get(ctx, cacheKey(id)).Result()
	if err == redis.Nil {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, err
	}

	var product models.Product
	if err := json.Unmarshal([]byte(value), &product); err != nil {
		return models.Product{}, false, err
	}
	return product, true, nil
}

func (pc *ProductCache) Set(ctx context.Context, product models.Product) error {
	payload, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return pc.Client.Set(ctx, cacheKey(product.ID), payload, pc.TTL).Err()
}

func (pc *ProductCache) Invalidate(ctx context.Context, id int64) error {
	return pc.Client.Del(ctx, cacheKey(id)).Err()
}

func (pc *ProductCache) Close() error {
	return pc.Client.Close()
}
