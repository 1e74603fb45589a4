// Package store defines the credential-store contract for durable
// refresh-token records and the user block flag. Concrete adapters live in
// store/memory and store/postgres; the engine only ever sees this interface.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record matches the requested token ID.
var ErrNotFound = errors.New("token record not found")

// ErrUnavailable wraps transport-level failures from the backing store.
var ErrUnavailable = errors.New("credential store unavailable")

// TokenRecord is the persisted shape of a single refresh token. The raw
// token value is never stored; only the SHA-256 of its secret half.
//
// Records are append-mostly: rotation flips Used exactly once, revocation
// flips Revoked exactly once, and rows are never hard-deleted so that reuse
// detection and audits can see terminal tokens.
type TokenRecord struct {
	ID            string
	TokenHash     [32]byte
	UserID        string
	TenantID      string
	AccessTokenID string
	FamilyID      string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	CreatedByIP   string
	UserAgent     string

	Used          bool
	Revoked       bool
	RevokedAt     time.Time
	RevokedByIP   string
	ReasonRevoked string
}

// Active reports whether the record can still be rotated at the given time.
func (r *TokenRecord) Active(now time.Time) bool {
	if r == nil {
		return false
	}
	return !r.Used && !r.Revoked && now.Before(r.ExpiresAt)
}

// Revocation carries the audit stamp applied when a record is revoked.
type Revocation struct {
	At     time.Time
	ByIP   string
	Reason string
}

// CredentialStore is the narrow persistence contract the engine depends on.
//
// ConditionalMarkUsed is the critical primitive: it must flip Used to true
// only when the row still has Used=false (the SQL equivalent of
// "UPDATE ... WHERE used = false") and report whether this caller won.
// In-process locking is not a substitute once multiple processes share the
// store, so every adapter implements the swap at the storage layer.
type CredentialStore interface {
	Create(ctx context.Context, rec *TokenRecord) error
	GetByID(ctx context.Context, id string) (*TokenRecord, error)
	ConditionalMarkUsed(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string, rev Revocation) error

	// RevokeFamily revokes every non-terminal member of a family except
	// excludeID. Partial completion is acceptable; a retry is idempotent.
	RevokeFamily(ctx context.Context, familyID, excludeID string, rev Revocation) error
	RevokeAllForUser(ctx context.Context, userID string, rev Revocation) error

	// ListActiveForUser returns non-used, non-revoked, non-expired records
	// for the user, newest first.
	ListActiveForUser(ctx context.Context, userID string) ([]*TokenRecord, error)

	IsUserBlocked(ctx context.Context, userID string) (bool, error)
}
