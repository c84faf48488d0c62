package memory

import (
	"time"

	"ai-chatbot-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ProfileCache keeps recently read profiles for ten minutes.
type ProfileCache struct {
	cache *cache.Cache
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{
		cache: cache.New(10*time.Minute, 20*time.Minute),
	}
}

func (c *ProfileCache) Save(profile *entity.Profile) {
	cp := *profile
	c.cache.Set(profile.Id.String(), &cp, cache.DefaultExpiration)
}

func (c *ProfileCache) Get(ownerId uuid.UUID) (*entity.Profile, bool) {
	if x, found := c.cache.Get(ownerId.String()); found {
		cp := *x.(*entity.Profile)
		return &cp, true
	}
	return nil, false
}

func (c *ProfileCache) Delete(ownerId uuid.UUID) {
	c.cache.Delete(ownerId.String())
}
