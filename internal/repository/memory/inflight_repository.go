package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Entries outlive any realistic pipeline phase; release normally removes them first.
const inflightSafetyTTL = 30 * time.Minute

// InflightRepository is the in-process dedup set for running pipeline phases.
type InflightRepository struct {
	cache *cache.Cache
}

func NewInflightRepository() *InflightRepository {
	return &InflightRepository{
		cache: cache.New(inflightSafetyTTL, 5*time.Minute),
	}
}

// Acquire claims key and reports false when it is already held.
func (r *InflightRepository) Acquire(ctx context.Context, key string) (bool, error) {
	if err := r.cache.Add(key, time.Now(), cache.DefaultExpiration); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *InflightRepository) Release(ctx context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}
