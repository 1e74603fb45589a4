package goSession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
)

func TestRotateSingleUse(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	rotated, err := env.engine.Rotate(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated.FamilyID != session.FamilyID {
		t.Fatalf("FamilyID = %q, want %q", rotated.FamilyID, session.FamilyID)
	}
	if rotated.TokenID == session.TokenID {
		t.Fatal("rotation must mint a new token ID")
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}
}

func TestRotateReuseRevokesFamily(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	rotated, err := env.engine.Rotate(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// Replaying the consumed token is reuse.
	_, err = env.engine.Rotate(ctx, session.RefreshToken)
	if !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("err = %v, want ErrTokenUsed", err)
	}

	// The cascade takes the live successor down with it.
	_, err = env.engine.Rotate(ctx, rotated.RefreshToken)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}

	info, err := env.engine.GetTokenInfo(ctx, rotated.TokenID)
	if err != nil {
		t.Fatalf("GetTokenInfo failed: %v", err)
	}
	if !info.Revoked {
		t.Fatal("successor not revoked by cascade")
	}
	if info.ReasonRevoked != "reuse detected" {
		t.Fatalf("ReasonRevoked = %q, want %q", info.ReasonRevoked, "reuse detected")
	}
}

func TestRotateReuseLeavesOtherFamiliesAlone(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	victim, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	bystander, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if _, err := env.engine.Rotate(ctx, victim.RefreshToken); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if _, err := env.engine.Rotate(ctx, victim.RefreshToken); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("err = %v, want ErrTokenUsed", err)
	}

	// The other family keeps rotating.
	if _, err := env.engine.Rotate(ctx, bystander.RefreshToken); err != nil {
		t.Fatalf("bystander rotation failed: %v", err)
	}
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Throttle.MaxRotateAttempts = 100
	})
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.engine.Rotate(ctx, session.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins, reuses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrTokenUsed):
			reuses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins > 1 {
		t.Fatalf("wins = %d, want at most 1", wins)
	}
	if wins+reuses != workers {
		t.Fatalf("wins+reuses = %d, want %d", wins+reuses, workers)
	}
}

func TestRotateRevokedTokenRevokesFamily(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	// An evicted token and a live sibling share a family.
	evicted := plantToken(t, env.store, "user-1", "fam-rev", time.Hour)
	sibling := plantToken(t, env.store, "user-1", "fam-rev", time.Hour)

	evictedID, _, err := internal.DecodeRefreshToken(evicted)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	rev := store.Revocation{At: time.Now(), Reason: "session limit exceeded"}
	if err := env.store.Revoke(ctx, evictedID, rev); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	// Replaying the revoked secret is a compromise signal.
	_, err = env.engine.Rotate(ctx, evicted)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}

	inspection, err := env.engine.ValidateRefresh(ctx, sibling)
	if err != nil {
		t.Fatalf("ValidateRefresh failed: %v", err)
	}
	if inspection.State != RefreshRevoked {
		t.Fatalf("sibling State = %q, want revoked", inspection.State)
	}

	siblingID, _, err := internal.DecodeRefreshToken(sibling)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	info, err := env.engine.GetTokenInfo(ctx, siblingID)
	if err != nil {
		t.Fatalf("GetTokenInfo failed: %v", err)
	}
	if info.ReasonRevoked != "reuse detected" {
		t.Fatalf("sibling ReasonRevoked = %q, want %q", info.ReasonRevoked, "reuse detected")
	}

	// The trigger keeps its original stamp.
	evictedInfo, err := env.engine.GetTokenInfo(ctx, evictedID)
	if err != nil {
		t.Fatalf("GetTokenInfo failed: %v", err)
	}
	if evictedInfo.ReasonRevoked != "session limit exceeded" {
		t.Fatalf("trigger ReasonRevoked = %q, want %q", evictedInfo.ReasonRevoked, "session limit exceeded")
	}
}

func TestRotateReuseSparesTriggeringToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if _, err := env.engine.Rotate(ctx, session.RefreshToken); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if _, err := env.engine.Rotate(ctx, session.RefreshToken); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("err = %v, want ErrTokenUsed", err)
	}

	// The replayed token is already terminal through Used; the cascade must
	// not restamp it as revoked.
	info, err := env.engine.GetTokenInfo(ctx, session.TokenID)
	if err != nil {
		t.Fatalf("GetTokenInfo failed: %v", err)
	}
	if !info.Used {
		t.Fatal("trigger token not marked used")
	}
	if info.Revoked {
		t.Fatalf("trigger token restamped by cascade: ReasonRevoked = %q", info.ReasonRevoked)
	}
}

func TestRotateExpiredIsTerminalNotEscalatory(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	// Plant an expired token and a live sibling in the same family.
	expired := plantToken(t, env.store, "user-1", "fam-exp", -time.Minute)
	live := plantToken(t, env.store, "user-1", "fam-exp", time.Hour)

	_, err := env.engine.Rotate(ctx, expired)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}

	// Expiry is not a compromise signal: no cascade.
	if _, err := env.engine.Rotate(ctx, live); err != nil {
		t.Fatalf("sibling rotation failed after expiry: %v", err)
	}
}

func TestRotateExpiredConsumesToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	expired := plantToken(t, env.store, "user-1", "fam-dead", -time.Minute)

	if _, err := env.engine.Rotate(ctx, expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}

	// The failed attempt lands the token in its terminal used state.
	inspection, err := env.engine.ValidateRefresh(ctx, expired)
	if err != nil {
		t.Fatalf("ValidateRefresh failed: %v", err)
	}
	if inspection.State != RefreshUsed {
		t.Fatalf("State = %q, want used", inspection.State)
	}
}

func TestRotateGarbageToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	for _, tok := range []string{"", "not-a-token", "AAAA"} {
		if _, err := env.engine.Rotate(ctx, tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Rotate(%q) = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestRotateWrongSecretLooksLikeUnknownToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	// Re-encode the real token ID with a fresh secret.
	tokenID, _, err := internal.DecodeRefreshToken(session.RefreshToken)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	wrongSecret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	forged, err := internal.EncodeRefreshToken(tokenID, wrongSecret)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if _, err := env.engine.Rotate(ctx, forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}

	// The real token is untouched by the failed guess.
	if _, err := env.engine.Rotate(ctx, session.RefreshToken); err != nil {
		t.Fatalf("legitimate rotation failed: %v", err)
	}
}

func TestRotateThrottle(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Throttle.MaxRotateAttempts = 1
		cfg.Throttle.RotateCooldownDuration = time.Minute
	})
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	rotated, err := env.engine.Rotate(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// Second rotation in the same window hits the family counter.
	_, err = env.engine.Rotate(ctx, rotated.RefreshToken)
	if !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("err = %v, want ErrRefreshRateLimited", err)
	}

	// Window expiry clears the counter.
	env.redis.FastForward(2 * time.Minute)
	if _, err := env.engine.Rotate(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("rotation after cooldown failed: %v", err)
	}
}

func TestRotateBlockedUser(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	env.store.SetUserBlocked("user-1", true)
	// Drop the cached block status from the issue path.
	env.engine.blockStatus.Invalidate(ctx, "user-1")

	_, err = env.engine.Rotate(ctx, session.RefreshToken)
	if !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("err = %v, want ErrUserBlocked", err)
	}

	// The blocked check runs before consumption: the token survives.
	inspection, err := env.engine.ValidateRefresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefresh failed: %v", err)
	}
	if inspection.State != RefreshActive {
		t.Fatalf("State = %q, want active", inspection.State)
	}
}

// plantToken writes a synthetic refresh token record directly into the store
// and returns its encoded wire form.
func plantToken(t *testing.T, st *memory.Store, userID, familyID string, ttl time.Duration) string {
	t.Helper()

	tid, err := internal.NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID failed: %v", err)
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	now := time.Now()
	rec := &store.TokenRecord{
		ID:        tid.String(),
		TokenHash: internal.HashRefreshSecret(secret),
		UserID:    userID,
		TenantID:  "0",
		FamilyID:  familyID,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(ttl),
	}
	if err := st.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	encoded, err := internal.EncodeRefreshToken(tid.String(), secret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}
	return encoded
}
