package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validClaims() Claims {
	return Claims{
		Sub:   "acct_1",
		Name:  "Avery",
		Email: "avery@example.com",
		JTI:   "jti-1",
		Exp:   time.Now().Add(time.Hour).Unix(),
	}
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	secret := []byte("secret")
	token, err := IssueToken(secret, validClaims())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Sub != "acct_1" {
		t.Fatalf("expected sub acct_1, got %q", claims.Sub)
	}
	if claims.Email != "avery@example.com" {
		t.Fatalf("expected email, got %q", claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("secret-a"), validClaims())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := ParseToken([]byte("secret-b"), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	secret := []byte("secret")
	token, err := IssueToken(secret, validClaims())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "x." + parts[1]
	if _, err := ParseToken(secret, tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	claims := validClaims()
	claims.Exp = time.Now().Add(-time.Minute).Unix()
	token, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := ParseToken(secret, token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected identical hashes for identical input")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected different hashes for different input")
	}
}
