package graph

import (
	"sync"
	"time"
)

// tokenRefreshMargin is how long before expiry a cached token is considered stale.
const tokenRefreshMargin = 60 * time.Second

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenCache holds the single app-only bearer token. Concurrent refreshes are tolerated:
// whichever Store lands last wins.
type TokenCache struct {
	mu    sync.RWMutex
	token *Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// NeedsRefresh reports whether the cached token is absent or expires within the refresh margin of now.
func (c *TokenCache) NeedsRefresh(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return needsRefresh(c.token, now)
}

func needsRefresh(t *Token, now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	return !now.Add(tokenRefreshMargin).Before(t.ExpiresAt)
}

// Get returns the cached token if it is still usable at now.
func (c *TokenCache) Get(now time.Time) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if needsRefresh(c.token, now) {
		return Token{}, false
	}
	return *c.token, true
}

func (c *TokenCache) Store(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = &t
}
