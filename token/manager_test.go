package token

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goSession/signing"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, ed25519.PrivateKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	provider := signing.NewStaticProvider(signing.Material{
		Method:     signing.MethodEd25519,
		KeyID:      "test-1",
		PrivateKey: priv,
		PublicKey:  pub,
		Issuer:     "token-test",
		Audience:   "token-test",
	})

	manager, err := NewManager(signing.NewHolder(provider, time.Minute), cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return manager, priv
}

func TestIssueParseRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t, Config{AccessTTL: 15 * time.Minute})
	ctx := context.Background()

	sub := Subject{
		UserID:   "user-1",
		TenantID: "t-1",
		Name:     "Alice",
		Email:    "alice@example.com",
		Roles:    []string{"admin", "user"},
	}

	signed, jti, expiresAt, err := manager.Issue(ctx, sub)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if jti == "" {
		t.Fatal("empty jti")
	}
	if time.Until(expiresAt) < 14*time.Minute {
		t.Fatalf("expiresAt too soon: %v", expiresAt)
	}

	claims, err := manager.Parse(ctx, signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.TenantID != "t-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID != jti {
		t.Fatalf("jti = %q, want %q", claims.ID, jti)
	}
	if len(claims.Roles) != 2 {
		t.Fatalf("roles = %v", claims.Roles)
	}
}

func TestParseClassifiesExpired(t *testing.T) {
	manager, priv := newTestManager(t, Config{AccessTTL: 15 * time.Minute})

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "token-test",
		Audience:  jwt.ClaimStrings{"token-test"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	_, err = manager.Parse(context.Background(), signed)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestParseClassifiesBadSignature(t *testing.T) {
	manager, _ := newTestManager(t, Config{AccessTTL: 15 * time.Minute})

	_, foreign, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "token-test",
		Audience:  jwt.ClaimStrings{"token-test"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(foreign)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	_, err = manager.Parse(context.Background(), signed)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	manager, _ := newTestManager(t, Config{AccessTTL: 15 * time.Minute})

	for _, tok := range []string{"", "x", "a.b.c"} {
		if _, err := manager.Parse(context.Background(), tok); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q) = %v, want ErrMalformed", tok, err)
		}
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	manager, priv := newTestManager(t, Config{AccessTTL: 15 * time.Minute})

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		Audience:  jwt.ClaimStrings{"token-test"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := manager.Parse(context.Background(), signed); err == nil {
		t.Fatal("expected rejection of wrong issuer")
	}
}

func TestParseRejectsFarFutureIAT(t *testing.T) {
	manager, priv := newTestManager(t, Config{AccessTTL: 15 * time.Minute})

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "token-test",
		Audience:  jwt.ClaimStrings{"token-test"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := manager.Parse(context.Background(), signed); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	holder := signing.NewHolder(signing.NewStaticProvider(signing.Material{
		Method:     signing.MethodEd25519,
		PrivateKey: priv,
		PublicKey:  pub,
	}), time.Minute)

	if _, err := NewManager(nil, Config{AccessTTL: time.Minute}); err == nil {
		t.Fatal("expected rejection of nil holder")
	}
	if _, err := NewManager(holder, Config{}); err == nil {
		t.Fatal("expected rejection of zero TTL")
	}
	if _, err := NewManager(holder, Config{AccessTTL: time.Minute, Leeway: time.Hour}); err == nil {
		t.Fatal("expected rejection of oversized leeway")
	}
}
