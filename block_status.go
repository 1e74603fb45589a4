package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/store"
)

// blockStatusCache answers "is this user blocked" with a short-TTL cache in
// front of the credential store. Block checks are non-critical reads: when
// both cache and store are unreachable past the retry budget, FailOpen
// decides whether the user passes (default) or the call degrades to blocked.
type blockStatusCache struct {
	cache      cache.Cache
	tokenStore store.CredentialStore
	ttl        time.Duration
	failOpen   bool
	retryCfg   RetryConfig
	onHit      func()
	onMiss     func()
	onDegraded func()
}

func newBlockStatusCache(c cache.Cache, s store.CredentialStore, cfg BlockStatusConfig, retryCfg RetryConfig, onHit, onMiss, onDegraded func()) *blockStatusCache {
	if !cfg.Enabled || s == nil {
		return nil
	}
	return &blockStatusCache{
		cache:      c,
		tokenStore: s,
		ttl:        cfg.TTL,
		failOpen:   cfg.FailOpen,
		retryCfg:   retryCfg,
		onHit:      onHit,
		onMiss:     onMiss,
		onDegraded: onDegraded,
	}
}

func blockKey(userID string) string {
	return "gsb:" + userID
}

func (b *blockStatusCache) IsBlocked(ctx context.Context, userID string) (bool, error) {
	if b.cache != nil {
		data, found, err := b.cache.Get(ctx, blockKey(userID))
		if err == nil && found && len(data) == 1 {
			if b.onHit != nil {
				b.onHit()
			}
			return data[0] == '1', nil
		}
	}
	if b.onMiss != nil {
		b.onMiss()
	}

	var blocked bool
	err := retryRead(ctx, b.retryCfg, func(ctx context.Context) error {
		var readErr error
		blocked, readErr = b.tokenStore.IsUserBlocked(ctx, userID)
		if readErr != nil && errors.Is(readErr, store.ErrUnavailable) {
			return retry.RetryableError(readErr)
		}
		return readErr
	})
	if err != nil {
		if b.onDegraded != nil {
			b.onDegraded()
		}
		if b.failOpen {
			return false, nil
		}
		return true, err
	}

	if b.cache != nil {
		value := []byte{'0'}
		if blocked {
			value[0] = '1'
		}
		_ = b.cache.Set(ctx, blockKey(userID), value, b.ttl)
	}

	return blocked, nil
}

// Invalidate drops the cached status, forcing the next check to the store.
func (b *blockStatusCache) Invalidate(ctx context.Context, userID string) {
	if b == nil || b.cache == nil {
		return
	}
	_ = b.cache.Remove(ctx, blockKey(userID))
}
