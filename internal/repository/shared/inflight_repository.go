package shared

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const inflightPrefix = "blueprint:inflight:"

// InflightRepository is the dedup set shared by every replica through Redis.
type InflightRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewInflightRepository(rdb *redis.Client, ttl time.Duration) *InflightRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &InflightRepository{rdb: rdb, ttl: ttl}
}

func (r *InflightRepository) Acquire(ctx context.Context, key string) (bool, error) {
	return r.rdb.SetNX(ctx, inflightPrefix+key, time.Now().Unix(), r.ttl).Result()
}

func (r *InflightRepository) Release(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, inflightPrefix+key).Err()
}
