package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, cfg), mr
}

func TestCheckRotateWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      3,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := limiter.CheckRotate(ctx, "fam-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestCheckRotateFamiliesAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
		t.Fatalf("fam-1: %v", err)
	}
	if err := limiter.CheckRotate(ctx, "fam-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if err := limiter.CheckRotate(ctx, "fam-2"); err != nil {
		t.Fatalf("fam-2 throttled by fam-1 counter: %v", err)
	}
}

func TestCheckRotateWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
		t.Fatalf("CheckRotate failed: %v", err)
	}
	if err := limiter.CheckRotate(ctx, "fam-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
		t.Fatalf("CheckRotate after window expiry failed: %v", err)
	}
}

func TestCheckRotateDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
			t.Fatalf("disabled throttle rejected attempt %d: %v", i, err)
		}
	}
}

func TestCheckIssue(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableIssueThrottle:   true,
		MaxIssueAttempts:      2,
		IssueCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.CheckIssue(ctx, "user-1"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := limiter.CheckIssue(ctx, "user-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestResetRotateClearsCounter(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
		t.Fatalf("CheckRotate failed: %v", err)
	}
	if err := limiter.ResetRotate(ctx, "fam-1"); err != nil {
		t.Fatalf("ResetRotate failed: %v", err)
	}
	if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
		t.Fatalf("CheckRotate after reset failed: %v", err)
	}
}

func TestGetRotateAttempts(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      10,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	attempts, err := limiter.GetRotateAttempts(ctx, "fam-1")
	if err != nil {
		t.Fatalf("GetRotateAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("attempts = %d, want 0 for missing key", attempts)
	}

	for i := 0; i < 3; i++ {
		if err := limiter.CheckRotate(ctx, "fam-1"); err != nil {
			t.Fatalf("CheckRotate failed: %v", err)
		}
	}

	attempts, err = limiter.GetRotateAttempts(ctx, "fam-1")
	if err != nil {
		t.Fatalf("GetRotateAttempts failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRedisDownSurfacesUnavailable(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	mr.Close()

	if err := limiter.CheckRotate(context.Background(), "fam-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("err = %v, want ErrRedisUnavailable", err)
	}
}
