package goSession

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSessionIssued       = "session_issued"
	auditEventSessionLimitApplied = "session_limit_enforced"
	auditEventIssueFailure        = "issue_failure"
	auditEventIssueRateLimited    = "issue_rate_limited"
	auditEventRotateSuccess       = "rotation_success"
	auditEventRotateInvalid       = "rotation_invalid"
	auditEventRotateRateLimited   = "rotation_rate_limited"
	auditEventReuseDetected       = "reuse_detected"
	auditEventFamilyRevoked       = "family_revoked"
	auditEventTokenRevoked        = "token_revoked"
	auditEventRevokeAll           = "revoke_all"
	auditEventValidateFailure     = "validate_failure"
	auditEventUserBlocked         = "user_blocked"
	auditEventDeviceAnomaly       = "device_anomaly_detected"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventStoreDegraded       = "store_degraded"
)

// AuditErrorCode defines a public type used by goSession APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidToken AuditErrorCode = "invalid_token"
	auditErrTokenExpired AuditErrorCode = "token_expired"
	auditErrTokenUsed    AuditErrorCode = "token_used"
	auditErrTokenRevoked AuditErrorCode = "token_revoked"
	auditErrUserBlocked  AuditErrorCode = "user_blocked"
	auditErrUserNotFound AuditErrorCode = "user_not_found"
	auditErrRateLimited  AuditErrorCode = "rate_limited"
	auditErrBadSignature AuditErrorCode = "bad_signature"
	auditErrClockSkew    AuditErrorCode = "clock_skew"
	auditErrSigningKey   AuditErrorCode = "signing_key_unavailable"
	auditErrUnavailable  AuditErrorCode = "backend_unavailable"
	auditErrInternal     AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tenantID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	tenantID string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", tenantID, "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenUsed):
		return auditErrTokenUsed
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrUserBlocked):
		return auditErrUserBlocked
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrRefreshRateLimited),
		errors.Is(err, ErrIssueRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrBadSignature):
		return auditErrBadSignature
	case errors.Is(err, ErrTokenClockSkew):
		return auditErrClockSkew
	case errors.Is(err, ErrSigningKeyUnavailable):
		return auditErrSigningKey
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
