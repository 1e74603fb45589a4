package goSession

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/store"
)

// Identity is the minimal user representation embedded into minted access
// tokens. The engine never authenticates credentials itself; the caller
// resolves the user first and hands the engine a verified Identity.
type Identity struct {
	UserID   string
	TenantID string
	Name     string
	Email    string
	Roles    []string
	Blocked  bool
}

// IdentityProvider is the interface callers implement to let the engine
// resolve identity details and block status from their user database.
type IdentityProvider interface {
	GetIdentity(ctx context.Context, userID string) (Identity, error)
}

// SessionResult is returned by [Engine.IssueSession] and [Engine.Rotate].
// It carries the minted token pair plus lifecycle identifiers.
type SessionResult struct {
	AccessToken      string
	RefreshToken     string
	TokenID          string
	FamilyID         string
	AccessTokenID    string
	RefreshExpiresAt time.Time
	EvictedTokenIDs  []string
}

// AuthResult is returned by [Engine.ValidateAccess]. It contains the
// authenticated user’s ID, tenant, and claims pulled from the access token.
type AuthResult struct {
	UserID   string
	TenantID string

	Name  string
	Email string
	Roles []string

	TokenID   string
	ExpiresAt time.Time
}

// RefreshTokenState is the observed lifecycle state reported by
// [Engine.ValidateRefresh].
type RefreshTokenState string

const (
	// RefreshActive is an exported constant or variable used by the session engine.
	RefreshActive RefreshTokenState = "active"
	// RefreshUsed is an exported constant or variable used by the session engine.
	RefreshUsed RefreshTokenState = "used"
	// RefreshRevoked is an exported constant or variable used by the session engine.
	RefreshRevoked RefreshTokenState = "revoked"
	// RefreshExpired is an exported constant or variable used by the session engine.
	RefreshExpired RefreshTokenState = "expired"
)

// RefreshInspection is the read-only view returned by [Engine.ValidateRefresh].
// Inspection never consumes the token and never triggers a family cascade.
type RefreshInspection struct {
	State     RefreshTokenState
	UserID    string
	TenantID  string
	TokenID   string
	FamilyID  string
	ExpiresAt time.Time
}

// TokenInfo is the introspection view of a stored refresh token record.
type TokenInfo = store.TokenRecord

// SecurityReport is a read-only snapshot of the engine’s security posture,
// returned by [Engine.SecurityReport].
type SecurityReport struct {
	ProductionMode        bool
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	SingleUseEnforced     bool
	ReuseDetectionEnabled bool
	SessionCapsActive     bool
	RotateThrottleActive  bool
	BlockStatusActive     bool
	ClaimsCacheActive     bool
	AuditActive           bool
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
