package external

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// ClientCache memoizes one EmailProvider per credential token for the life of
// the process. Concurrent first use of a token builds the provider once.
// Entries are never invalidated; a rotated token simply gets a new entry.
type ClientCache struct {
	factory ProviderFactory

	mu      sync.RWMutex
	clients map[string]EmailProvider
	group   singleflight.Group
}

// NewClientCache creates a ClientCache around factory.
func NewClientCache(factory ProviderFactory) *ClientCache {
	return &ClientCache{
		factory: factory,
		clients: make(map[string]EmailProvider),
	}
}

// Get returns the cached provider for token, building it on first use.
func (c *ClientCache) Get(token string) (EmailProvider, error) {
	c.mu.RLock()
	p, ok := c.clients[token]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := c.group.Do(token, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.clients[token]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}
		built, err := c.factory(token)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.clients[token] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(EmailProvider), nil
}

// Len reports how many providers are cached.
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
