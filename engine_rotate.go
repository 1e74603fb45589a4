package goSession

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/store"
)

const reuseRevocationReason = "reuse detected"

// Rotate describes the rotate operation and its observable behavior.
//
// Rotate may return an error when input validation, dependency calls, or security checks fail.
// Rotate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (*SessionResult, error) {
	if e == nil || e.tokenStore == nil || e.tokenManager == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrTokenInvalid
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	result := flows.RunRotate(sctx, refreshToken, e.rotateDeps(ctx))

	switch result.Failure {
	case flows.RotateFailureNone:
		// handled below

	case flows.RotateFailureDecode, flows.RotateFailureNotFound:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.UserID, result.TenantID, result.TokenID, ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid

	case flows.RotateFailureRateLimited:
		if errors.Is(result.Err, rate.ErrRateLimited) {
			e.metricInc(MetricRotateRateLimited)
			e.emitAudit(ctx, auditEventRotateRateLimited, false, result.UserID, result.TenantID, result.TokenID, ErrRefreshRateLimited, nil)
			e.emitRateLimit(ctx, "rotate", result.TenantID, func() map[string]string {
				return map[string]string{"family_id": result.FamilyID}
			})
			return nil, ErrRefreshRateLimited
		}
		// Throttle backend trouble must not lock users out of rotation.
		log.Print("goSession: rotation throttle check degraded")
		e.metricInc(MetricStoreRetry)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	case flows.RotateFailureRevoked:
		// Rotating a revoked token is reuse of a leaked secret, not a
		// routine failure: the cascade already ran in the flow.
		e.metricInc(MetricReuseDetected)
		e.metricInc(MetricFamilyRevoked)
		e.emitAudit(ctx, auditEventReuseDetected, false, result.UserID, result.TenantID, result.TokenID, ErrTokenRevoked, func() map[string]string {
			return map[string]string{"family_id": result.FamilyID}
		})
		e.emitAudit(ctx, auditEventFamilyRevoked, result.CascadeErr == nil, result.UserID, result.TenantID, result.TokenID, result.CascadeErr, func() map[string]string {
			return map[string]string{
				"family_id": result.FamilyID,
				"reason":    reuseRevocationReason,
			}
		})
		return nil, ErrTokenRevoked

	case flows.RotateFailureReuse:
		e.metricInc(MetricReuseDetected)
		e.metricInc(MetricFamilyRevoked)
		e.emitAudit(ctx, auditEventReuseDetected, false, result.UserID, result.TenantID, result.TokenID, ErrTokenUsed, func() map[string]string {
			return map[string]string{"family_id": result.FamilyID}
		})
		e.emitAudit(ctx, auditEventFamilyRevoked, result.CascadeErr == nil, result.UserID, result.TenantID, result.TokenID, result.CascadeErr, func() map[string]string {
			return map[string]string{
				"family_id": result.FamilyID,
				"reason":    reuseRevocationReason,
			}
		})
		return nil, ErrTokenUsed

	case flows.RotateFailureExpired:
		e.metricInc(MetricTokenExpired)
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.UserID, result.TenantID, result.TokenID, ErrTokenExpired, nil)
		return nil, ErrTokenExpired

	case flows.RotateFailureBlocked:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventUserBlocked, false, result.UserID, result.TenantID, result.TokenID, ErrUserBlocked, nil)
		return nil, ErrUserBlocked

	case flows.RotateFailureBlockCheck:
		e.metricInc(MetricRotateFailure)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	case flows.RotateFailureIssueAccess:
		e.metricInc(MetricRotateFailure)
		if errors.Is(result.Err, ErrUserBlocked) {
			e.emitAudit(ctx, auditEventUserBlocked, false, result.UserID, result.TenantID, result.TokenID, ErrUserBlocked, nil)
			return nil, ErrUserBlocked
		}
		if errors.Is(result.Err, ErrUserNotFound) || errors.Is(result.Err, ErrSigningKeyUnavailable) {
			e.emitAudit(ctx, auditEventRotateInvalid, false, result.UserID, result.TenantID, result.TokenID, result.Err, nil)
			return nil, result.Err
		}
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.UserID, result.TenantID, result.TokenID, result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	case flows.RotateFailureStore:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.UserID, result.TenantID, result.TokenID, result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	default:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.UserID, result.TenantID, result.TokenID, result.Err, nil)
		return nil, fmt.Errorf("token rotation failed: %w", result.Err)
	}

	e.metricInc(MetricRotateSuccess)
	e.emitAudit(ctx, auditEventRotateSuccess, true, result.UserID, result.TenantID, result.NewTokenID, nil, func() map[string]string {
		return map[string]string{
			"family_id":      result.FamilyID,
			"previous_token": result.TokenID,
		}
	})

	return &SessionResult{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		TokenID:          result.NewTokenID,
		FamilyID:         result.FamilyID,
		AccessTokenID:    result.AccessTokenID,
		RefreshExpiresAt: result.ExpiresAt,
	}, nil
}

func (e *Engine) rotateDeps(auditCtx context.Context) flows.RotateDeps {
	deps := flows.RotateDeps{
		ClientIPFromContext:  clientIPFromContext,
		UserAgentFromContext: userAgentFromContext,
		DecodeRefreshToken:   internal.DecodeRefreshToken,
		NewTokenID: func() (string, error) {
			tid, err := internal.NewTokenID()
			if err != nil {
				return "", err
			}
			return tid.String(), nil
		},
		NewRefreshSecret:   internal.NewRefreshSecret,
		HashRefreshSecret:  internal.HashRefreshSecret,
		HashEqual:          internal.HashEqual,
		EncodeRefreshToken: internal.EncodeRefreshToken,
		IssueAccessToken:   e.issueAccess,
		RefreshLifetime:    e.refreshLifetime,
		ReuseReason:        reuseRevocationReason,
		CheckBlocked:       e.checkBlocked,
		SoftCheckDevice: func(_ context.Context, rec *store.TokenRecord) {
			e.softCheckDevice(auditCtx, rec)
		},
		Store:    e.tokenStore,
		NotFound: store.ErrNotFound,
		Warn: func(msg string, _ ...any) {
			log.Print(msg)
		},
	}
	if e.rateLimiter != nil {
		deps.RateLimiter = e.rateLimiter
	}
	return deps
}
