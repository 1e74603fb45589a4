package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/store"
)

// GetActiveSessionCount describes the getactivesessioncount operation and its observable behavior.
//
// GetActiveSessionCount may return an error when input validation, dependency calls, or security checks fail.
// GetActiveSessionCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetActiveSessionCount(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	count, err := flows.RunActiveSessionCount(sctx, userID, e.introspectionDeps())
	if err != nil {
		return 0, e.mapIntrospectionErr(err)
	}
	return count, nil
}

// ListActiveSessions describes the listactivesessions operation and its observable behavior.
//
// ListActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// ListActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListActiveSessions(ctx context.Context, userID string) ([]*TokenInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	records, err := flows.RunListActiveSessions(sctx, userID, e.introspectionDeps())
	if err != nil {
		return nil, e.mapIntrospectionErr(err)
	}

	out := make([]*TokenInfo, 0, len(records))
	for _, rec := range records {
		info := *rec
		// Hashes never leave the engine.
		info.TokenHash = [32]byte{}
		out = append(out, &info)
	}
	return out, nil
}

// GetTokenInfo describes the gettokeninfo operation and its observable behavior.
//
// GetTokenInfo may return an error when input validation, dependency calls, or security checks fail.
// GetTokenInfo does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetTokenInfo(ctx context.Context, tokenID string) (*TokenInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	rec, err := flows.RunGetTokenInfo(sctx, tokenID, e.introspectionDeps())
	if err != nil {
		return nil, e.mapIntrospectionErr(err)
	}

	info := *rec
	info.TokenHash = [32]byte{}
	return &info, nil
}

// GetRotateAttempts describes the getrotateattempts operation and its observable behavior.
//
// GetRotateAttempts may return an error when input validation, dependency calls, or security checks fail.
// GetRotateAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetRotateAttempts(ctx context.Context, familyID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	count, err := flows.RunGetRotateAttempts(ctx, familyID, e.introspectionDeps())
	if err != nil {
		if errors.Is(err, rate.ErrRedisUnavailable) {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return 0, err
	}
	return count, nil
}

func (e *Engine) introspectionDeps() flows.IntrospectionDeps {
	deps := flows.IntrospectionDeps{
		EngineNotReadyErr: ErrEngineNotReady,
		UserNotFoundErr:   ErrUserNotFound,
		TokenNotFoundErr:  ErrTokenInvalid,
		StoreNotFound:     store.ErrNotFound,
	}
	if e.tokenStore != nil {
		deps.Store = e.tokenStore
	}
	if e.rateLimiter != nil {
		deps.RateLimiter = e.rateLimiter
	}
	return deps
}

func (e *Engine) mapIntrospectionErr(err error) error {
	switch {
	case errors.Is(err, ErrEngineNotReady),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTokenInvalid):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
