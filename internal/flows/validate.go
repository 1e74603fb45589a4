package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureUnauthorized
	ValidateFailureExpired
	ValidateFailureBadSignature
	ValidateFailureTokenClockSkew
	ValidateFailureBlocked
)

// ValidateResult returns either verified claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *token.AccessClaims
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	ParseAccess    func(context.Context, string) (*token.AccessClaims, error)
	Now            func() time.Time
	MaxClockSkew   time.Duration
	ExpiredErr     error
	BadSignature   error
	CheckBlocked   func(ctx context.Context, userID string) (bool, error)
	EnableBlock    bool
	MetricObserve  func(time.Duration)
	LatencyEnabled bool
}

// RunValidateAccess verifies an access token. The JWT signature and expiry
// checks are stateless; the optional blocked-user check consults the
// block-status cache and fails open on store trouble.
func RunValidateAccess(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var started time.Time
	if deps.LatencyEnabled && deps.MetricObserve != nil {
		started = deps.Now()
	}

	claims, err := deps.ParseAccess(ctx, tokenStr)
	if err != nil {
		switch {
		case deps.ExpiredErr != nil && errors.Is(err, deps.ExpiredErr):
			return ValidateResult{Failure: ValidateFailureExpired, Err: err}
		case deps.BadSignature != nil && errors.Is(err, deps.BadSignature):
			return ValidateResult{Failure: ValidateFailureBadSignature, Err: err}
		default:
			return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
		}
	}
	if deps.MaxClockSkew >= 0 && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.After(deps.Now().Add(deps.MaxClockSkew)) {
			return ValidateResult{Failure: ValidateFailureTokenClockSkew}
		}
	}

	if deps.EnableBlock && deps.CheckBlocked != nil {
		blocked, err := deps.CheckBlocked(ctx, claims.Subject)
		if err == nil && blocked {
			return ValidateResult{Failure: ValidateFailureBlocked, Claims: claims}
		}
	}

	if deps.LatencyEnabled && deps.MetricObserve != nil {
		deps.MetricObserve(deps.Now().Sub(started))
	}

	return ValidateResult{Claims: claims}
}

// RefreshState is the observed lifecycle state of a refresh token.
type RefreshState int

const (
	RefreshStateActive RefreshState = iota
	RefreshStateUsed
	RefreshStateRevoked
	RefreshStateExpired
)

// RefreshInspectionResult reports a refresh token's state without consuming it.
type RefreshInspectionResult struct {
	Failure  ValidateFailureKind
	Err      error
	State    RefreshState
	UserID   string
	TenantID string
	TokenID  string
	FamilyID string
	Record   *store.TokenRecord
}

type RefreshInspectionStore interface {
	GetByID(ctx context.Context, id string) (*store.TokenRecord, error)
}

// RefreshInspectionDeps captures refresh inspection dependencies.
type RefreshInspectionDeps struct {
	Now                func() time.Time
	DecodeRefreshToken func(string) (string, [32]byte, error)
	HashRefreshSecret  func([32]byte) [32]byte
	HashEqual          func(a, b [32]byte) bool
	Store              RefreshInspectionStore
	NotFound           error
}

// RunValidateRefresh inspects a refresh token read-only. It never marks the
// token used and never triggers a cascade.
func RunValidateRefresh(ctx context.Context, refreshToken string, deps RefreshInspectionDeps) RefreshInspectionResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tokenID, providedSecret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RefreshInspectionResult{Failure: ValidateFailureUnauthorized, Err: err}
	}

	rec, err := deps.Store.GetByID(ctx, tokenID)
	if err != nil {
		return RefreshInspectionResult{Failure: ValidateFailureUnauthorized, Err: err, TokenID: tokenID}
	}
	if !deps.HashEqual(rec.TokenHash, deps.HashRefreshSecret(providedSecret)) {
		return RefreshInspectionResult{Failure: ValidateFailureUnauthorized, TokenID: tokenID}
	}

	state := RefreshStateActive
	switch {
	case rec.Revoked:
		state = RefreshStateRevoked
	case rec.Used:
		state = RefreshStateUsed
	case deps.Now().After(rec.ExpiresAt):
		state = RefreshStateExpired
	}

	return RefreshInspectionResult{
		State:    state,
		UserID:   rec.UserID,
		TenantID: rec.TenantID,
		TokenID:  tokenID,
		FamilyID: rec.FamilyID,
		Record:   rec,
	}
}
