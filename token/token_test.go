package token

import (
	"errors"
	"testing"
	"time"
)

func testManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TTL:           24 * time.Hour,
		SigningMethod: MethodHS256,
		Secret:        []byte(secret),
		Issuer:        "test",
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := testManager(t, "test-secret")

	tok, err := m.Issue("u-1", "PERSON", "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != "u-1" || claims.Role != "PERSON" || claims.Subject != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := testManager(t, "test-secret")

	tok, err := m.Issue("u-1", "PERSON", "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Move the verifier's clock past the 24h TTL.
	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := m.Verify(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyBadSignature(t *testing.T) {
	issuer := testManager(t, "secret-a")
	verifier := testManager(t, "secret-b")

	tok, err := issuer.Issue("u-1", "PERSON", "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := verifier.Verify(tok); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	m := testManager(t, "test-secret")

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := m.Verify(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, Secret: []byte("x")}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing secret to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: "rsa"}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected ed25519 without public key to be rejected")
	}
}
