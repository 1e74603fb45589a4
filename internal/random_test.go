package internal

import (
	"strings"
	"testing"
)

func TestRefreshTokenRoundTrip(t *testing.T) {
	tid, err := NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID failed: %v", err)
	}
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	encoded, err := EncodeRefreshToken(tid.String(), secret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("encoded token not URL-safe: %q", encoded)
	}

	gotID, gotSecret, err := DecodeRefreshToken(encoded)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	if gotID != tid.String() {
		t.Fatalf("token ID = %q, want %q", gotID, tid.String())
	}
	if gotSecret != secret {
		t.Fatal("secret mismatch after round trip")
	}
}

func TestDecodeRefreshTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "!!!!", "AAAA", strings.Repeat("A", 200)} {
		if _, _, err := DecodeRefreshToken(tok); err == nil {
			t.Fatalf("DecodeRefreshToken(%q) accepted garbage", tok)
		}
	}
}

func TestParseTokenIDRejectsWrongLength(t *testing.T) {
	if _, err := ParseTokenID("AAAA"); err == nil {
		t.Fatal("expected rejection of short token ID")
	}
	if _, err := ParseTokenID("!badbase64!"); err == nil {
		t.Fatal("expected rejection of invalid base64")
	}
}

func TestHashEqual(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	other, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	if !HashEqual(HashRefreshSecret(secret), HashRefreshSecret(secret)) {
		t.Fatal("identical secrets must hash equal")
	}
	if HashEqual(HashRefreshSecret(secret), HashRefreshSecret(other)) {
		t.Fatal("distinct secrets must not hash equal")
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		tid, err := NewTokenID()
		if err != nil {
			t.Fatalf("NewTokenID failed: %v", err)
		}
		if seen[tid.String()] {
			t.Fatalf("duplicate token ID after %d draws", i)
		}
		seen[tid.String()] = true
	}
}
