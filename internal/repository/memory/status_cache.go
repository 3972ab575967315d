package memory

import (
	"time"

	"gym-saas-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// StatusCache keeps a short-lived copy of each tenant's subscription state for
// the access gate. Lifecycle transitions invalidate their tenant's entry.
type StatusCache struct {
	cache *cache.Cache
}

func NewStatusCache(ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &StatusCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *StatusCache) Save(admin *entity.Admin) {
	c.cache.Set(admin.Id.String(), cloneAdmin(admin), cache.DefaultExpiration)
}

func (c *StatusCache) Get(adminId uuid.UUID) (*entity.Admin, bool) {
	if x, found := c.cache.Get(adminId.String()); found {
		return cloneAdmin(x.(*entity.Admin)), true
	}
	return nil, false
}

func (c *StatusCache) Invalidate(adminId uuid.UUID) {
	c.cache.Delete(adminId.String())
}
