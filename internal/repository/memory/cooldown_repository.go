package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CooldownRepository tracks providers that hit a rate limit. Entries expire on their own
// once the cooldown window has passed.
type CooldownRepository struct {
	cache    *cache.Cache
	cooldown time.Duration
}

func NewCooldownRepository(cooldown time.Duration) *CooldownRepository {
	// Purge expired entries every minute
	c := cache.New(cooldown, time.Minute)
	return &CooldownRepository{
		cache:    c,
		cooldown: cooldown,
	}
}

func (r *CooldownRepository) MarkRateLimited(provider string) {
	r.cache.Set(provider, time.Now().Add(r.cooldown), cache.DefaultExpiration)
}

func (r *CooldownRepository) InCooldown(provider string) bool {
	_, found := r.cache.Get(provider)
	return found
}

// Until returns the cooldown deadline for provider, if any.
func (r *CooldownRepository) Until(provider string) (time.Time, bool) {
	if x, found := r.cache.Get(provider); found {
		return x.(time.Time), true
	}
	return time.Time{}, false
}

func (r *CooldownRepository) Reset() {
	r.cache.Flush()
}
