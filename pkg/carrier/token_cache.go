package carrier

import (
	"sync"
	"time"
)

// TokenCache stores the carrier bearer token shared by every caller of one account.
type TokenCache interface {
	// Get returns the cached token if it has not expired.
	Get() (string, bool)
	// Set stores token for ttl.
	Set(token string, ttl time.Duration)
	// Invalidate drops token if it is still the cached one. A token refreshed by another
	// caller in the meantime is left alone.
	Invalidate(token string)
}

// MemoryTokenCache is a process-local TokenCache.
type MemoryTokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryTokenCache creates an empty cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{now: time.Now}
}

// Get implements TokenCache.
func (c *MemoryTokenCache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Set implements TokenCache.
func (c *MemoryTokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	c.token = token
	c.expiresAt = c.now().Add(ttl)
	c.mu.Unlock()
}

// Invalidate implements TokenCache.
func (c *MemoryTokenCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}

// expiry reports when the cached token stops being served.
func (c *MemoryTokenCache) expiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}
