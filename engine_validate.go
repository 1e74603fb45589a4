package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/token"
)

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.tokenManager == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrTokenInvalid
	}

	result := flows.RunValidateAccess(ctx, accessToken, flows.ValidateDeps{
		ParseAccess:    e.parseAccess,
		MaxClockSkew:   e.config.Security.MaxClockSkew,
		ExpiredErr:     token.ErrExpired,
		BadSignature:   token.ErrBadSignature,
		CheckBlocked:   e.checkBlocked,
		EnableBlock:    e.config.Security.EnableBlockStatusChecks && e.blockStatus != nil,
		MetricObserve:  e.observeValidateLatency,
		LatencyEnabled: e.metrics.LatencyEnabled(),
	})

	switch result.Failure {
	case flows.ValidateFailureNone:
		// handled below

	case flows.ValidateFailureExpired:
		e.metricInc(MetricValidateFailure)
		e.metricInc(MetricTokenExpired)
		return nil, ErrTokenExpired

	case flows.ValidateFailureBadSignature:
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidateFailure, false, "", "", "", ErrBadSignature, nil)
		return nil, ErrBadSignature

	case flows.ValidateFailureTokenClockSkew:
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidateFailure, false, "", "", "", ErrTokenClockSkew, nil)
		return nil, ErrTokenClockSkew

	case flows.ValidateFailureBlocked:
		e.metricInc(MetricValidateFailure)
		userID := ""
		if result.Claims != nil {
			userID = result.Claims.Subject
		}
		e.emitAudit(ctx, auditEventUserBlocked, false, userID, "", "", ErrUserBlocked, nil)
		return nil, ErrUserBlocked

	default:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricValidateSuccess)

	claims := result.Claims
	out := &AuthResult{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Name:     claims.Name,
		Email:    claims.Email,
		Roles:    claims.Roles,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// ValidateRefresh describes the validaterefresh operation and its observable behavior.
//
// ValidateRefresh may return an error when input validation, dependency calls, or security checks fail.
// ValidateRefresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateRefresh(ctx context.Context, refreshToken string) (*RefreshInspection, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrTokenInvalid
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	result := flows.RunValidateRefresh(sctx, refreshToken, flows.RefreshInspectionDeps{
		DecodeRefreshToken: internal.DecodeRefreshToken,
		HashRefreshSecret:  internal.HashRefreshSecret,
		HashEqual:          internal.HashEqual,
		Store:              e.tokenStore,
	})
	if result.Failure != flows.ValidateFailureNone {
		return nil, ErrTokenInvalid
	}

	inspection := &RefreshInspection{
		UserID:   result.UserID,
		TenantID: result.TenantID,
		TokenID:  result.TokenID,
		FamilyID: result.FamilyID,
	}
	if result.Record != nil {
		inspection.ExpiresAt = result.Record.ExpiresAt
	}

	switch result.State {
	case flows.RefreshStateUsed:
		inspection.State = RefreshUsed
	case flows.RefreshStateRevoked:
		inspection.State = RefreshRevoked
	case flows.RefreshStateExpired:
		inspection.State = RefreshExpired
	default:
		inspection.State = RefreshActive
	}

	return inspection, nil
}

func (e *Engine) parseAccess(ctx context.Context, tokenStr string) (*token.AccessClaims, error) {
	return e.tokenManager.Parse(ctx, tokenStr)
}

func (e *Engine) observeValidateLatency(d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricValidateLatency, d)
}
