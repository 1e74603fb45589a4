package goSession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
)

const sessionLimitReason = "session limit exceeded"

// IssueSession describes the issuesession operation and its observable behavior.
//
// IssueSession may return an error when input validation, dependency calls, or security checks fail.
// IssueSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueSession(ctx context.Context, userID string) (*SessionResult, error) {
	if e == nil || e.tokenStore == nil || e.tokenManager == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	result := flows.RunIssue(sctx, userID, tenantIDFromContext(ctx), e.issueDeps())

	switch result.Failure {
	case flows.IssueFailureNone:
		// handled below

	case flows.IssueFailureRateLimited:
		if errors.Is(result.Err, rate.ErrRateLimited) {
			e.metricInc(MetricIssueFailure)
			e.emitAudit(ctx, auditEventIssueRateLimited, false, userID, result.TenantID, "", ErrIssueRateLimited, nil)
			e.emitRateLimit(ctx, "issue", result.TenantID, func() map[string]string {
				return map[string]string{"user_id": userID}
			})
			return nil, ErrIssueRateLimited
		}
		// Redis trouble must not block fresh logins.
		log.Print("goSession: issue throttle check degraded")
		e.metricInc(MetricStoreRetry)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	case flows.IssueFailureBlocked:
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventUserBlocked, false, userID, result.TenantID, "", ErrUserBlocked, nil)
		return nil, ErrUserBlocked

	case flows.IssueFailureBlockCheck:
		e.metricInc(MetricIssueFailure)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	case flows.IssueFailureIssueAccess:
		e.metricInc(MetricIssueFailure)
		if errors.Is(result.Err, ErrUserBlocked) {
			e.emitAudit(ctx, auditEventUserBlocked, false, userID, result.TenantID, "", ErrUserBlocked, nil)
			return nil, ErrUserBlocked
		}
		if errors.Is(result.Err, ErrUserNotFound) || errors.Is(result.Err, ErrSigningKeyUnavailable) {
			e.emitAudit(ctx, auditEventIssueFailure, false, userID, result.TenantID, "", result.Err, nil)
			return nil, result.Err
		}
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, result.TenantID, "", result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	case flows.IssueFailureSessionCap, flows.IssueFailureStore:
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, result.TenantID, result.TokenID, result.Err, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	default:
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, result.TenantID, result.TokenID, result.Err, nil)
		return nil, fmt.Errorf("session issue failed: %w", result.Err)
	}

	if len(result.Evicted) > 0 {
		e.metricInc(MetricSessionLimitEnforced)
		e.emitAudit(ctx, auditEventSessionLimitApplied, true, userID, result.TenantID, result.TokenID, nil, func() map[string]string {
			return map[string]string{
				"evicted_count": strconv.Itoa(len(result.Evicted)),
				"reason":        sessionLimitReason,
			}
		})
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventSessionIssued, true, userID, result.TenantID, result.TokenID, nil, func() map[string]string {
		return map[string]string{"family_id": result.FamilyID}
	})

	return &SessionResult{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		TokenID:          result.TokenID,
		FamilyID:         result.FamilyID,
		AccessTokenID:    result.AccessTokenID,
		RefreshExpiresAt: result.ExpiresAt,
		EvictedTokenIDs:  result.Evicted,
	}, nil
}

func (e *Engine) issueDeps() flows.IssueDeps {
	deps := flows.IssueDeps{
		ClientIPFromContext:  clientIPFromContext,
		UserAgentFromContext: userAgentFromContext,
		NewTokenID: func() (string, error) {
			tid, err := internal.NewTokenID()
			if err != nil {
				return "", err
			}
			return tid.String(), nil
		},
		NewFamilyID:        uuid.NewString,
		NewRefreshSecret:   internal.NewRefreshSecret,
		HashRefreshSecret:  internal.HashRefreshSecret,
		EncodeRefreshToken: internal.EncodeRefreshToken,
		IssueAccessToken:   e.issueAccess,
		RefreshLifetime:    e.refreshLifetime,
		MaxActivePerUser:   e.config.Sessions.MaxActivePerUser,
		SessionLimitReason: sessionLimitReason,
		CheckBlocked:       e.checkBlocked,
		Store:              e.tokenStore,
		Warn: func(msg string, _ ...any) {
			log.Print(msg)
		},
	}
	if e.rateLimiter != nil {
		deps.RateLimiter = e.rateLimiter
	}
	return deps
}
