package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/store"
)

// RevokeFailureKind classifies revocation flow failures for root-level mapping.
type RevokeFailureKind int

const (
	RevokeFailureNone RevokeFailureKind = iota
	RevokeFailureDecode
	RevokeFailureNotFound
	RevokeFailureStore
)

// RevokeResult reports the outcome of a token or family revocation.
type RevokeResult struct {
	Failure  RevokeFailureKind
	Err      error
	UserID   string
	TenantID string
	TokenID  string
	FamilyID string
}

type RevokeTokenStore interface {
	GetByID(ctx context.Context, id string) (*store.TokenRecord, error)
	RevokeFamily(ctx context.Context, familyID, excludeID string, rev store.Revocation) error
	RevokeAllForUser(ctx context.Context, userID string, rev store.Revocation) error
}

// RevokeDeps captures revocation flow dependencies.
type RevokeDeps struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time
	DecodeRefreshToken  func(string) (string, [32]byte, error)
	HashRefreshSecret   func([32]byte) [32]byte
	HashEqual           func(a, b [32]byte) bool
	LogoutReason        string
	RevokeAllReason     string
	ResetThrottle       func(ctx context.Context, familyID string)
	Store               RevokeTokenStore
	NotFound            error
}

// RunRevokeToken revokes the presented refresh token's entire family.
// Logout terminates the session chain, not just the current link.
func RunRevokeToken(ctx context.Context, refreshToken string, deps RevokeDeps) RevokeResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tokenID, providedSecret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RevokeResult{
			Failure: RevokeFailureDecode,
			Err:     err,
		}
	}

	rec, err := deps.Store.GetByID(ctx, tokenID)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RevokeResult{
				Failure: RevokeFailureNotFound,
				Err:     err,
				TokenID: tokenID,
			}
		}
		return RevokeResult{
			Failure: RevokeFailureStore,
			Err:     err,
			TokenID: tokenID,
		}
	}

	if !deps.HashEqual(rec.TokenHash, deps.HashRefreshSecret(providedSecret)) {
		return RevokeResult{
			Failure: RevokeFailureNotFound,
			TokenID: tokenID,
		}
	}

	rev := store.Revocation{
		At:     deps.Now(),
		ByIP:   deps.ClientIPFromContext(ctx),
		Reason: deps.LogoutReason,
	}
	if err := deps.Store.RevokeFamily(ctx, rec.FamilyID, "", rev); err != nil {
		return RevokeResult{
			Failure:  RevokeFailureStore,
			Err:      err,
			UserID:   rec.UserID,
			TenantID: rec.TenantID,
			TokenID:  tokenID,
			FamilyID: rec.FamilyID,
		}
	}

	if deps.ResetThrottle != nil {
		deps.ResetThrottle(ctx, rec.FamilyID)
	}

	return RevokeResult{
		Failure:  RevokeFailureNone,
		UserID:   rec.UserID,
		TenantID: rec.TenantID,
		TokenID:  tokenID,
		FamilyID: rec.FamilyID,
	}
}

// RunRevokeAllForUser revokes every active token the user holds. Idempotent:
// repeating the call against an already-clean user is a no-op success.
func RunRevokeAllForUser(ctx context.Context, userID string, deps RevokeDeps) RevokeResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	rev := store.Revocation{
		At:     deps.Now(),
		ByIP:   deps.ClientIPFromContext(ctx),
		Reason: deps.RevokeAllReason,
	}
	if err := deps.Store.RevokeAllForUser(ctx, userID, rev); err != nil {
		return RevokeResult{
			Failure: RevokeFailureStore,
			Err:     err,
			UserID:  userID,
		}
	}

	return RevokeResult{
		Failure: RevokeFailureNone,
		UserID:  userID,
	}
}
