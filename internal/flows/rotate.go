package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/store"
)

// RotateFailureKind classifies rotation flow failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureDecode
	RotateFailureNotFound
	RotateFailureRateLimited
	RotateFailureRevoked
	RotateFailureReuse
	RotateFailureExpired
	RotateFailureBlocked
	RotateFailureBlockCheck
	RotateFailureSecret
	RotateFailureStore
	RotateFailureIssueAccess
	RotateFailureEncode
)

// RotateResult carries either the rotated token pair or failure metadata.
type RotateResult struct {
	Failure       RotateFailureKind
	Err           error
	CascadeErr    error
	UserID        string
	TenantID      string
	TokenID       string
	NewTokenID    string
	FamilyID      string
	AccessTokenID string
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	Record        *store.TokenRecord
}

type RotateRateLimiter interface {
	CheckRotate(ctx context.Context, familyID string) error
}

type RotateTokenStore interface {
	GetByID(ctx context.Context, id string) (*store.TokenRecord, error)
	ConditionalMarkUsed(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, rec *store.TokenRecord) error
	RevokeFamily(ctx context.Context, familyID, excludeID string, rev store.Revocation) error
}

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string
	Now                  func() time.Time
	DecodeRefreshToken   func(string) (string, [32]byte, error)
	NewTokenID           func() (string, error)
	NewRefreshSecret     func() ([32]byte, error)
	HashRefreshSecret    func([32]byte) [32]byte
	HashEqual            func(a, b [32]byte) bool
	EncodeRefreshToken   func(string, [32]byte) (string, error)
	IssueAccessToken     func(ctx context.Context, userID, tenantID string) (token string, jti string, err error)
	RefreshLifetime      func() time.Duration
	ReuseReason          string
	CheckBlocked         func(ctx context.Context, userID string) (bool, error)
	SoftCheckDevice      func(ctx context.Context, rec *store.TokenRecord)
	RateLimiter          RotateRateLimiter
	Store                RotateTokenStore
	NotFound             error
	Warn                 func(string, ...any)
}

// RunRotate executes single-use rotation: the presented token is atomically
// consumed, a successor in the same family is created, and a fresh access
// token is minted. Reuse of an already-consumed token revokes the family.
func RunRotate(ctx context.Context, refreshToken string, deps RotateDeps) RotateResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	tokenID, providedSecret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RotateResult{
			Failure: RotateFailureDecode,
			Err:     err,
		}
	}

	rec, err := deps.Store.GetByID(ctx, tokenID)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RotateResult{
				Failure: RotateFailureNotFound,
				Err:     err,
				TokenID: tokenID,
			}
		}
		return RotateResult{
			Failure: RotateFailureStore,
			Err:     err,
			TokenID: tokenID,
		}
	}

	// Secret mismatch is indistinguishable from an unknown token to the caller.
	if !deps.HashEqual(rec.TokenHash, deps.HashRefreshSecret(providedSecret)) {
		return RotateResult{
			Failure:  RotateFailureNotFound,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
		}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRotate(ctx, rec.FamilyID); err != nil {
			return RotateResult{
				Failure:  RotateFailureRateLimited,
				Err:      err,
				UserID:   rec.UserID,
				TenantID: rec.TenantID,
				TokenID:  tokenID,
				FamilyID: rec.FamilyID,
				Record:   rec,
			}
		}
	}

	now := deps.Now()
	switch {
	case rec.Revoked:
		// A revoked secret presented again is the same compromise signal
		// as a consumed one: any surviving family members go down too.
		return reuseCascade(ctx, rec, deps, RotateFailureRevoked)
	case rec.Used:
		// Replay of a consumed token: the family is compromised.
		return reuseCascade(ctx, rec, deps, RotateFailureReuse)
	case now.After(rec.ExpiresAt):
		// Expiry is terminal for this token but says nothing about the
		// family: consume it, no cascade.
		if _, err := deps.Store.ConditionalMarkUsed(ctx, rec.ID); err != nil {
			deps.Warn("goSession: expired token consumption failed")
		}
		return RotateResult{
			Failure:  RotateFailureExpired,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}

	if deps.CheckBlocked != nil {
		blocked, err := deps.CheckBlocked(ctx, rec.UserID)
		if err != nil {
			return RotateResult{
				Failure:  RotateFailureBlockCheck,
				Err:      err,
				UserID:   rec.UserID,
				TenantID: rec.TenantID,
				TokenID:  tokenID,
				FamilyID: rec.FamilyID,
				Record:   rec,
			}
		}
		if blocked {
			return RotateResult{
				Failure:  RotateFailureBlocked,
				UserID:   rec.UserID,
				TenantID: rec.TenantID,
				TokenID:  tokenID,
				FamilyID: rec.FamilyID,
				Record:   rec,
			}
		}
	}

	if deps.SoftCheckDevice != nil {
		deps.SoftCheckDevice(ctx, rec)
	}

	won, err := deps.Store.ConditionalMarkUsed(ctx, rec.ID)
	if err != nil {
		return RotateResult{
			Failure:  RotateFailureStore,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}
	if !won {
		// A concurrent rotation consumed the token first. Losing the race
		// is the same signal as replay.
		return reuseCascade(ctx, rec, deps, RotateFailureReuse)
	}

	newID, err := deps.NewTokenID()
	if err != nil {
		return RotateResult{
			Failure:  RotateFailureSecret,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}
	nextSecret, err := deps.NewRefreshSecret()
	if err != nil {
		return RotateResult{
			Failure:  RotateFailureSecret,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}

	access, jti, err := deps.IssueAccessToken(ctx, rec.UserID, rec.TenantID)
	if err != nil {
		return RotateResult{
			Failure:  RotateFailureIssueAccess,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}

	next := &store.TokenRecord{
		ID:            newID,
		TokenHash:     deps.HashRefreshSecret(nextSecret),
		UserID:        rec.UserID,
		TenantID:      rec.TenantID,
		AccessTokenID: jti,
		FamilyID:      rec.FamilyID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(deps.RefreshLifetime()),
		CreatedByIP:   deps.ClientIPFromContext(ctx),
		UserAgent:     deps.UserAgentFromContext(ctx),
	}
	if err := deps.Store.Create(ctx, next); err != nil {
		return RotateResult{
			Failure:  RotateFailureStore,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}

	refresh, err := deps.EncodeRefreshToken(newID, nextSecret)
	if err != nil {
		return RotateResult{
			Failure:  RotateFailureEncode,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
			Record:   rec,
		}
	}

	return RotateResult{
		Failure:       RotateFailureNone,
		UserID:        rec.UserID,
		TenantID:      rec.TenantID,
		TokenID:       tokenID,
		NewTokenID:    newID,
		FamilyID:      rec.FamilyID,
		AccessTokenID: jti,
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresAt:     next.ExpiresAt,
		Record:        rec,
	}
}

func reuseCascade(ctx context.Context, rec *store.TokenRecord, deps RotateDeps, failure RotateFailureKind) RotateResult {
	rev := store.Revocation{
		At:     deps.Now(),
		ByIP:   deps.ClientIPFromContext(ctx),
		Reason: deps.ReuseReason,
	}

	result := RotateResult{
		Failure:  failure,
		UserID:   rec.UserID,
		TenantID: rec.TenantID,
		TokenID:  rec.ID,
		FamilyID: rec.FamilyID,
		Record:   rec,
	}

	// The triggering token is already terminal; its own stamp stays intact.
	if err := deps.Store.RevokeFamily(ctx, rec.FamilyID, rec.ID, rev); err != nil {
		deps.Warn("goSession: family cascade revocation failed")
		result.CascadeErr = err
	}

	return result
}
