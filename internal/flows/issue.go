package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/store"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureRateLimited
	IssueFailureBlocked
	IssueFailureBlockCheck
	IssueFailureSessionCap
	IssueFailureTokenID
	IssueFailureSecret
	IssueFailureIssueAccess
	IssueFailureStore
	IssueFailureEncode
)

// IssueResult carries either the issued token pair or failure metadata.
type IssueResult struct {
	Failure       IssueFailureKind
	Err           error
	UserID        string
	TenantID      string
	TokenID       string
	FamilyID      string
	AccessTokenID string
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	Evicted       []string
}

type IssueRateLimiter interface {
	CheckIssue(ctx context.Context, userID string) error
}

type IssueTokenStore interface {
	Create(ctx context.Context, rec *store.TokenRecord) error
	ListActiveForUser(ctx context.Context, userID string) ([]*store.TokenRecord, error)
	Revoke(ctx context.Context, id string, rev store.Revocation) error
}

// IssueDeps captures session issue flow dependencies.
type IssueDeps struct {
	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string
	Now                  func() time.Time
	NewTokenID           func() (string, error)
	NewFamilyID          func() string
	NewRefreshSecret     func() ([32]byte, error)
	HashRefreshSecret    func([32]byte) [32]byte
	EncodeRefreshToken   func(string, [32]byte) (string, error)
	IssueAccessToken     func(ctx context.Context, userID, tenantID string) (token string, jti string, err error)
	RefreshLifetime      func() time.Duration
	MaxActivePerUser     int
	SessionLimitReason   string
	CheckBlocked         func(ctx context.Context, userID string) (bool, error)
	RateLimiter          IssueRateLimiter
	Store                IssueTokenStore
	Warn                 func(string, ...any)
}

// RunIssue creates a fresh token family for the user: a new refresh token
// record plus a paired access token. Session capping runs before insertion so
// the cap is never exceeded by more than the in-flight request.
func RunIssue(ctx context.Context, userID, tenantID string, deps IssueDeps) IssueResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckIssue(ctx, userID); err != nil {
			return IssueResult{
				Failure:  IssueFailureRateLimited,
				Err:      err,
				UserID:   userID,
				TenantID: tenantID,
			}
		}
	}

	if deps.CheckBlocked != nil {
		blocked, err := deps.CheckBlocked(ctx, userID)
		if err != nil {
			return IssueResult{
				Failure:  IssueFailureBlockCheck,
				Err:      err,
				UserID:   userID,
				TenantID: tenantID,
			}
		}
		if blocked {
			return IssueResult{
				Failure:  IssueFailureBlocked,
				UserID:   userID,
				TenantID: tenantID,
			}
		}
	}

	evicted, err := enforceSessionCap(ctx, userID, deps)
	if err != nil {
		return IssueResult{
			Failure:  IssueFailureSessionCap,
			Err:      err,
			UserID:   userID,
			TenantID: tenantID,
		}
	}

	tokenID, err := deps.NewTokenID()
	if err != nil {
		return IssueResult{
			Failure:  IssueFailureTokenID,
			Err:      err,
			UserID:   userID,
			TenantID: tenantID,
		}
	}
	secret, err := deps.NewRefreshSecret()
	if err != nil {
		return IssueResult{
			Failure:  IssueFailureSecret,
			Err:      err,
			UserID:   userID,
			TenantID: tenantID,
			TokenID:  tokenID,
		}
	}

	access, jti, err := deps.IssueAccessToken(ctx, userID, tenantID)
	if err != nil {
		return IssueResult{
			Failure:  IssueFailureIssueAccess,
			Err:      err,
			UserID:   userID,
			TenantID: tenantID,
			TokenID:  tokenID,
		}
	}

	now := deps.Now()
	familyID := deps.NewFamilyID()
	rec := &store.TokenRecord{
		ID:            tokenID,
		TokenHash:     deps.HashRefreshSecret(secret),
		UserID:        userID,
		TenantID:      tenantID,
		AccessTokenID: jti,
		FamilyID:      familyID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(deps.RefreshLifetime()),
		CreatedByIP:   deps.ClientIPFromContext(ctx),
		UserAgent:     deps.UserAgentFromContext(ctx),
	}
	if err := deps.Store.Create(ctx, rec); err != nil {
		return IssueResult{
			Failure:  IssueFailureStore,
			Err:      err,
			UserID:   userID,
			TenantID: tenantID,
			TokenID:  tokenID,
			FamilyID: familyID,
		}
	}

	refresh, err := deps.EncodeRefreshToken(tokenID, secret)
	if err != nil {
		return IssueResult{
			Failure:  IssueFailureEncode,
			Err:      err,
			UserID:   userID,
			TenantID: tenantID,
			TokenID:  tokenID,
			FamilyID: familyID,
		}
	}

	return IssueResult{
		Failure:       IssueFailureNone,
		UserID:        userID,
		TenantID:      tenantID,
		TokenID:       tokenID,
		FamilyID:      familyID,
		AccessTokenID: jti,
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresAt:     rec.ExpiresAt,
		Evicted:       evicted,
	}
}

// enforceSessionCap revokes the oldest active tokens so that after the new
// token is inserted the user holds at most MaxActivePerUser sessions.
func enforceSessionCap(ctx context.Context, userID string, deps IssueDeps) ([]string, error) {
	if deps.MaxActivePerUser <= 0 {
		return nil, nil
	}

	active, err := deps.Store.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	excess := len(active) - deps.MaxActivePerUser + 1
	if excess <= 0 {
		return nil, nil
	}

	rev := store.Revocation{
		At:     deps.Now(),
		ByIP:   deps.ClientIPFromContext(ctx),
		Reason: deps.SessionLimitReason,
	}

	// List is ordered newest first; evict from the tail.
	evicted := make([]string, 0, excess)
	for i := len(active) - 1; i >= 0 && excess > 0; i-- {
		if err := deps.Store.Revoke(ctx, active[i].ID, rev); err != nil {
			return evicted, err
		}
		evicted = append(evicted, active[i].ID)
		excess--
	}

	return evicted, nil
}
