package goSession

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/cache"
)

func newMemoryClaimsCache(t *testing.T) (*claimsCache, *testIdentityProvider) {
	t.Helper()

	provider := newTestIdentityProvider()
	cc := newClaimsCache(cache.NewMemory(), provider, ClaimsCacheConfig{
		Enabled: true,
		TTL:     time.Minute,
		Prefix:  "gsc",
	}, RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}, nil, nil)
	if cc == nil {
		t.Fatal("newClaimsCache returned nil")
	}
	return cc, provider
}

func TestClaimsCacheSingleFlightFill(t *testing.T) {
	cc, provider := newMemoryClaimsCache(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if _, err := cc.Get(ctx, "user-1"); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// All concurrent misses collapse into one provider load.
	if calls := provider.Calls(); calls != 1 {
		t.Fatalf("provider calls = %d, want 1", calls)
	}
}

func TestClaimsCacheFillLocksArePruned(t *testing.T) {
	cc, provider := newMemoryClaimsCache(t)
	ctx := context.Background()

	// Spread fills over distinct users; every entry must be released again.
	for i := 0; i < 50; i++ {
		userID := fmt.Sprintf("user-%d", i%2+1)
		if _, err := cc.Get(ctx, userID); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		cc.Invalidate(ctx, userID)
	}

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = cc.Get(ctx, "user-2")
			}
		}()
	}
	wg.Wait()

	cc.mu.Lock()
	remaining := len(cc.locks)
	cc.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("fill lock map holds %d entries after all fills completed", remaining)
	}
	if provider.Calls() == 0 {
		t.Fatal("provider never consulted")
	}
}
