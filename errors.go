package goSession

import "errors"

var (
	// ErrTokenInvalid is an exported constant or variable used by the session engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the session engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenUsed is an exported constant or variable used by the session engine.
	ErrTokenUsed = errors.New("refresh token already used")
	// ErrTokenRevoked is an exported constant or variable used by the session engine.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrUserBlocked is an exported constant or variable used by the session engine.
	ErrUserBlocked = errors.New("user blocked")
	// ErrSigningKeyUnavailable is an exported constant or variable used by the session engine.
	ErrSigningKeyUnavailable = errors.New("signing key unavailable")
	// ErrStoreUnavailable is an exported constant or variable used by the session engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrBadSignature is an exported constant or variable used by the session engine.
	ErrBadSignature = errors.New("bad token signature")
	// ErrRefreshRateLimited is an exported constant or variable used by the session engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrIssueRateLimited is an exported constant or variable used by the session engine.
	ErrIssueRateLimited = errors.New("issue rate limited")
	// ErrTokenClockSkew is an exported constant or variable used by the session engine.
	ErrTokenClockSkew = errors.New("token issued in the future")
	// ErrUserNotFound is an exported constant or variable used by the session engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
