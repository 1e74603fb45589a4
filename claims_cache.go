package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/store"
)

// claimsCache fronts the identity provider with a short-TTL cache so minting
// does not hit the user database on every rotation. Reads are non-critical:
// a cache outage falls through to the provider, never to a denied request.
type claimsCache struct {
	cache    cache.Cache
	provider IdentityProvider
	ttl      time.Duration
	prefix   string
	retryCfg RetryConfig
	onHit    func()
	onMiss   func()

	mu    sync.Mutex
	locks map[string]*fillLock
}

// fillLock serializes concurrent miss-path fills for one user. Waiters are
// reference counted so the map entry can be dropped when the last one leaves.
type fillLock struct {
	mu   sync.Mutex
	refs int
}

func newClaimsCache(c cache.Cache, provider IdentityProvider, cfg ClaimsCacheConfig, retryCfg RetryConfig, onHit, onMiss func()) *claimsCache {
	if !cfg.Enabled || c == nil || provider == nil {
		return nil
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "gsc"
	}
	return &claimsCache{
		cache:    c,
		provider: provider,
		ttl:      cfg.TTL,
		prefix:   prefix,
		retryCfg: retryCfg,
		onHit:    onHit,
		onMiss:   onMiss,
		locks:    make(map[string]*fillLock),
	}
}

func (c *claimsCache) key(userID string) string {
	return c.prefix + ":" + userID
}

// Get returns the cached identity when fresh, otherwise loads it from the
// provider under a per-user lock so concurrent misses produce one load.
func (c *claimsCache) Get(ctx context.Context, userID string) (Identity, error) {
	if identity, ok := c.lookup(ctx, userID); ok {
		if c.onHit != nil {
			c.onHit()
		}
		return identity, nil
	}

	lock := c.acquireFill(userID)
	defer c.releaseFill(userID, lock)

	// Another caller may have populated the entry while we waited.
	if identity, ok := c.lookup(ctx, userID); ok {
		if c.onHit != nil {
			c.onHit()
		}
		return identity, nil
	}

	if c.onMiss != nil {
		c.onMiss()
	}

	var identity Identity
	err := retryRead(ctx, c.retryCfg, func(ctx context.Context) error {
		var loadErr error
		identity, loadErr = c.provider.GetIdentity(ctx, userID)
		if loadErr != nil && errors.Is(loadErr, store.ErrUnavailable) {
			return retry.RetryableError(loadErr)
		}
		return loadErr
	})
	if err != nil {
		return Identity{}, err
	}

	if data, marshalErr := json.Marshal(identity); marshalErr == nil {
		// Best effort: a failed write only costs the next caller a miss.
		_ = c.cache.Set(ctx, c.key(userID), data, c.ttl)
	}

	return identity, nil
}

// Invalidate removes the cached entry so the next mint observes fresh claims.
func (c *claimsCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	_ = c.cache.Remove(ctx, c.key(userID))
}

func (c *claimsCache) lookup(ctx context.Context, userID string) (Identity, bool) {
	data, found, err := c.cache.Get(ctx, c.key(userID))
	if err != nil || !found {
		return Identity{}, false
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		_ = c.cache.Remove(ctx, c.key(userID))
		return Identity{}, false
	}
	return identity, true
}

func (c *claimsCache) acquireFill(userID string) *fillLock {
	c.mu.Lock()
	lock, ok := c.locks[userID]
	if !ok {
		lock = &fillLock{}
		c.locks[userID] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (c *claimsCache) releaseFill(userID string, lock *fillLock) {
	lock.mu.Unlock()

	c.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(c.locks, userID)
	}
	c.mu.Unlock()
}
