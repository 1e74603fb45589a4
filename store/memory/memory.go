// Package memory provides a mutex-guarded in-memory CredentialStore.
// It is the adapter used by the engine's own tests and is suitable for
// single-process deployments and prototyping; durable deployments should
// use store/postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/store"
)

// Store is an in-memory store.CredentialStore implementation.
type Store struct {
	mu      sync.Mutex
	records map[string]*store.TokenRecord
	blocked map[string]bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*store.TokenRecord),
		blocked: make(map[string]bool),
	}
}

// SetUserBlocked flips the block flag for a user. Test and admin hook.
func (s *Store) SetUserBlocked(userID string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[userID] = blocked
}

// Create inserts a copy of rec keyed by its ID.
func (s *Store) Create(_ context.Context, rec *store.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// GetByID returns a copy of the record or store.ErrNotFound.
func (s *Store) GetByID(_ context.Context, id string) (*store.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ConditionalMarkUsed flips Used under the store lock. Exactly one caller
// observes true for any given record; everyone else sees false.
func (s *Store) ConditionalMarkUsed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if rec.Used {
		return false, nil
	}
	rec.Used = true
	return true, nil
}

// Revoke stamps the record as revoked. Already-terminal records are left
// untouched so the call stays idempotent.
func (s *Store) Revoke(_ context.Context, id string, rev store.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	revokeRecord(rec, rev)
	return nil
}

// RevokeFamily revokes every non-terminal member of the family except
// excludeID.
func (s *Store) RevokeFamily(_ context.Context, familyID, excludeID string, rev store.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.FamilyID != familyID || rec.ID == excludeID {
			continue
		}
		revokeRecord(rec, rev)
	}
	return nil
}

// RevokeAllForUser revokes every non-terminal record owned by the user.
func (s *Store) RevokeAllForUser(_ context.Context, userID string, rev store.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.UserID != userID {
			continue
		}
		revokeRecord(rec, rev)
	}
	return nil
}

// ListActiveForUser returns copies of the user's active records, newest first.
func (s *Store) ListActiveForUser(_ context.Context, userID string) ([]*store.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]*store.TokenRecord, 0, 4)
	for _, rec := range s.records {
		if rec.UserID != userID || !rec.Active(now) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// IsUserBlocked reports the block flag for the user.
func (s *Store) IsUserBlocked(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[userID], nil
}

func revokeRecord(rec *store.TokenRecord, rev store.Revocation) {
	if rec.Revoked {
		return
	}
	rec.Revoked = true
	rec.RevokedAt = rev.At
	rec.RevokedByIP = rev.ByIP
	rec.ReasonRevoked = rev.Reason
}
