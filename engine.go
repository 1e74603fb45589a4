package goSession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/signing"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
)

// Engine defines a public type used by goSession APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	tokenStore   store.CredentialStore
	cacheClient  cache.Cache
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	signing      *signing.Holder
	tokenManager *token.Manager
	identity     IdentityProvider
	claimsCache  *claimsCache
	blockStatus  *blockStatusCache
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Timeouts.Store <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Timeouts.Store)
}

func (e *Engine) refreshLifetime() time.Duration {
	return e.config.Token.RefreshTTL
}

// issueAccess resolves the user's identity (through the claims cache when
// enabled) and mints a signed access token.
func (e *Engine) issueAccess(ctx context.Context, userID, tenantID string) (string, string, error) {
	identity, err := e.resolveIdentity(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if identity.Blocked {
		return "", "", ErrUserBlocked
	}
	if tenantID == "" {
		tenantID = identity.TenantID
	}

	access, jti, _, err := e.tokenManager.Issue(ctx, token.Subject{
		UserID:   userID,
		TenantID: tenantID,
		Name:     identity.Name,
		Email:    identity.Email,
		Roles:    identity.Roles,
	})
	if err != nil {
		if errors.Is(err, signing.ErrUnavailable) {
			return "", "", fmt.Errorf("%w: %v", ErrSigningKeyUnavailable, err)
		}
		return "", "", err
	}
	return access, jti, nil
}

func (e *Engine) resolveIdentity(ctx context.Context, userID string) (Identity, error) {
	if e.claimsCache != nil {
		return e.claimsCache.Get(ctx, userID)
	}
	if e.identity == nil {
		return Identity{}, ErrEngineNotReady
	}
	return e.identity.GetIdentity(ctx, userID)
}

// checkBlocked consults the block-status cache. Non-critical read: when the
// backing store stays down past the retry budget this fails open and reports
// the user as not blocked.
func (e *Engine) checkBlocked(ctx context.Context, userID string) (bool, error) {
	if !e.config.Security.EnableBlockStatusChecks || e.blockStatus == nil {
		return false, nil
	}
	return e.blockStatus.IsBlocked(ctx, userID)
}

// softCheckDevice compares the presenting client against the device that
// created the token. Mismatches are observed, never enforced.
func (e *Engine) softCheckDevice(ctx context.Context, rec *store.TokenRecord) {
	if rec == nil {
		return
	}

	if e.config.SoftChecks.DetectIPChange && rec.CreatedByIP != "" {
		if ip := clientIPFromContext(ctx); ip != "" && ip != rec.CreatedByIP {
			e.metricInc(MetricDeviceIPMismatch)
			e.emitAudit(ctx, auditEventDeviceAnomaly, true, rec.UserID, rec.TenantID, rec.ID, nil, func() map[string]string {
				return map[string]string{
					"signal": "ip_change",
				}
			})
		}
	}
	if e.config.SoftChecks.DetectUserAgentChange && rec.UserAgent != "" {
		if ua := userAgentFromContext(ctx); ua != "" && ua != rec.UserAgent {
			e.metricInc(MetricDeviceUAMismatch)
			e.emitAudit(ctx, auditEventDeviceAnomaly, true, rec.UserID, rec.TenantID, rec.ID, nil, func() map[string]string {
				return map[string]string{
					"signal": "user_agent_change",
				}
			})
		}
	}
}

// retryRead wraps a read in a bounded exponential backoff. Only errors marked
// retryable by fn are retried.
func retryRead(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))
	return retry.Do(ctx, backoff, fn)
}
