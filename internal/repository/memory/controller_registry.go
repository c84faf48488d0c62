package memory

import (
	"sync"
	"time"

	"ai-chatbot-be/pkg/conversation"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ControllerFactory builds a fresh controller for an owner who has none yet.
type ControllerFactory func(ownerId uuid.UUID) *conversation.Controller

// ControllerRegistry holds one conversation controller per signed-in owner.
// Entries expire after a day without use.
type ControllerRegistry struct {
	cache   *cache.Cache
	factory ControllerFactory
	mu      sync.Mutex
}

func NewControllerRegistry(factory ControllerFactory) *ControllerRegistry {
	return &ControllerRegistry{
		cache:   cache.New(24*time.Hour, 30*time.Minute),
		factory: factory,
	}
}

// GetOrCreate reports created=true when the controller did not exist and still needs Initialize.
func (r *ControllerRegistry) GetOrCreate(ownerId uuid.UUID) (*conversation.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, found := r.get(ownerId); found {
		return ctrl, false
	}
	ctrl := r.factory(ownerId)
	r.cache.Set(ownerId.String(), ctrl, cache.DefaultExpiration)
	return ctrl, true
}

func (r *ControllerRegistry) Get(ownerId uuid.UUID) (*conversation.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(ownerId)
}

func (r *ControllerRegistry) Remove(ownerId uuid.UUID) {
	r.cache.Delete(ownerId.String())
}

func (r *ControllerRegistry) Count() int {
	return r.cache.ItemCount()
}

// get refreshes the expiry on every hit. Caller holds mu.
func (r *ControllerRegistry) get(ownerId uuid.UUID) (*conversation.Controller, bool) {
	x, found := r.cache.Get(ownerId.String())
	if !found {
		return nil, false
	}
	ctrl := x.(*conversation.Controller)
	r.cache.Set(ownerId.String(), ctrl, cache.DefaultExpiration)
	return ctrl, true
}
