package signing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type snapshot struct {
	material  Material
	fetchedAt time.Time
}

// Holder caches the provider's Material behind a TTL. Readers take a
// lock-free atomic load on the fast path; refresh uses check-then-lock-
// then-recheck so only one caller fetches while the rest reuse the swap.
type Holder struct {
	provider  Provider
	ttl       time.Duration
	onRefresh func()

	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewHolder creates a Holder refreshing from provider every ttl.
// A non-positive ttl disables caching and every call hits the provider.
func NewHolder(provider Provider, ttl time.Duration) *Holder {
	return &Holder{provider: provider, ttl: ttl}
}

// OnRefresh registers a callback invoked after every successful refresh from
// the provider. Must be set before the Holder is shared.
func (h *Holder) OnRefresh(fn func()) {
	if h == nil {
		return
	}
	h.onRefresh = fn
}

// Current returns fresh signing material, refreshing from the provider when
// the cached snapshot has aged out. A stale snapshot is served only if it is
// still within TTL; provider failures surface as ErrUnavailable.
func (h *Holder) Current(ctx context.Context) (Material, error) {
	if h == nil || h.provider == nil {
		return Material{}, ErrUnavailable
	}

	if snap := h.current.Load(); snap != nil && h.fresh(snap) {
		return snap.material, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	if snap := h.current.Load(); snap != nil && h.fresh(snap) {
		return snap.material, nil
	}

	material, err := h.provider.SigningMaterial(ctx)
	if err != nil {
		return Material{}, err
	}
	if !material.Valid() {
		return Material{}, ErrUnavailable
	}

	h.current.Store(&snapshot{material: material, fetchedAt: time.Now()})
	if h.onRefresh != nil {
		h.onRefresh()
	}
	return material, nil
}

// Invalidate drops the cached snapshot so the next Current call refetches.
func (h *Holder) Invalidate() {
	if h == nil {
		return
	}
	h.current.Store(nil)
}

func (h *Holder) fresh(snap *snapshot) bool {
	if h.ttl <= 0 {
		return false
	}
	return time.Since(snap.fetchedAt) < h.ttl
}
