package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/store"
)

type IntrospectionTokenStore interface {
	ListActiveForUser(ctx context.Context, userID string) ([]*store.TokenRecord, error)
	GetByID(ctx context.Context, id string) (*store.TokenRecord, error)
}

type IntrospectionRateLimiter interface {
	GetRotateAttempts(ctx context.Context, familyID string) (int, error)
}

type IntrospectionDeps struct {
	Store             IntrospectionTokenStore
	RateLimiter       IntrospectionRateLimiter
	EngineNotReadyErr error
	UserNotFoundErr   error
	TokenNotFoundErr  error
	StoreNotFound     error
}

func RunActiveSessionCount(ctx context.Context, userID string, deps IntrospectionDeps) (int, error) {
	if deps.Store == nil {
		return 0, deps.EngineNotReadyErr
	}
	if userID == "" {
		return 0, deps.UserNotFoundErr
	}

	active, err := deps.Store.ListActiveForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

func RunListActiveSessions(ctx context.Context, userID string, deps IntrospectionDeps) ([]*store.TokenRecord, error) {
	if deps.Store == nil {
		return nil, deps.EngineNotReadyErr
	}
	if userID == "" {
		return nil, deps.UserNotFoundErr
	}

	return deps.Store.ListActiveForUser(ctx, userID)
}

func RunGetTokenInfo(ctx context.Context, tokenID string, deps IntrospectionDeps) (*store.TokenRecord, error) {
	if deps.Store == nil {
		return nil, deps.EngineNotReadyErr
	}
	if tokenID == "" {
		return nil, deps.TokenNotFoundErr
	}

	rec, err := deps.Store.GetByID(ctx, tokenID)
	if err != nil {
		if deps.StoreNotFound != nil && errors.Is(err, deps.StoreNotFound) {
			return nil, deps.TokenNotFoundErr
		}
		return nil, err
	}
	return rec, nil
}

func RunGetRotateAttempts(ctx context.Context, familyID string, deps IntrospectionDeps) (int, error) {
	if deps.RateLimiter == nil {
		return 0, deps.EngineNotReadyErr
	}
	if familyID == "" {
		return 0, nil
	}
	return deps.RateLimiter.GetRotateAttempts(ctx, familyID)
}
