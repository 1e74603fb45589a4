package goSession

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/store"
)

const (
	logoutRevocationReason    = "logout"
	revokeAllRevocationReason = "revoke all"
)

// RevokeToken describes the revoketoken operation and its observable behavior.
//
// RevokeToken may return an error when input validation, dependency calls, or security checks fail.
// RevokeToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeToken(ctx context.Context, refreshToken string) error {
	if e == nil || e.tokenStore == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return ErrTokenInvalid
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	result := flows.RunRevokeToken(sctx, refreshToken, e.revokeDeps())

	switch result.Failure {
	case flows.RevokeFailureNone:
		e.metricInc(MetricRevoke)
		e.emitAudit(ctx, auditEventTokenRevoked, true, result.UserID, result.TenantID, result.TokenID, nil, func() map[string]string {
			return map[string]string{
				"family_id": result.FamilyID,
				"reason":    logoutRevocationReason,
			}
		})
		return nil

	case flows.RevokeFailureDecode, flows.RevokeFailureNotFound:
		return ErrTokenInvalid

	default:
		e.emitAudit(ctx, auditEventTokenRevoked, false, result.UserID, result.TenantID, result.TokenID, result.Err, nil)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
	}
}

// RevokeAllForUser describes the revokeallforuser operation and its observable behavior.
//
// RevokeAllForUser may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeAllForUser(ctx context.Context, userID string) error {
	if e == nil || e.tokenStore == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	result := flows.RunRevokeAllForUser(sctx, userID, e.revokeDeps())
	if result.Failure != flows.RevokeFailureNone {
		e.emitAudit(ctx, auditEventRevokeAll, false, userID, "", "", result.Err, nil)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
	}

	// Cached claims and block status are stale after a mass revocation.
	if e.claimsCache != nil {
		e.claimsCache.Invalidate(ctx, userID)
	}
	if e.blockStatus != nil {
		e.blockStatus.Invalidate(ctx, userID)
	}

	e.metricInc(MetricRevokeAll)
	e.emitAudit(ctx, auditEventRevokeAll, true, userID, "", "", nil, nil)
	return nil
}

func (e *Engine) revokeDeps() flows.RevokeDeps {
	deps := flows.RevokeDeps{
		ClientIPFromContext: clientIPFromContext,
		DecodeRefreshToken:  internal.DecodeRefreshToken,
		HashRefreshSecret:   internal.HashRefreshSecret,
		HashEqual:           internal.HashEqual,
		LogoutReason:        logoutRevocationReason,
		RevokeAllReason:     revokeAllRevocationReason,
		Store:               e.tokenStore,
		NotFound:            store.ErrNotFound,
	}
	if e.rateLimiter != nil {
		limiter := e.rateLimiter
		deps.ResetThrottle = func(ctx context.Context, familyID string) {
			// Best effort: a stuck counter only delays the next window.
			_ = limiter.ResetRotate(ctx, familyID)
		}
	}
	return deps
}
