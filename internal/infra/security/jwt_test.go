package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret-0123456789", "callyou-auth", 30*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	return issuer
}

func TestIssueAndParseAccessToken(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, err := issuer.IssueAccessToken(TokenClaims{
		UserID:     "user-1",
		Email:      "user@example.com",
		UserType:   "client",
		IsVerified: true,
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	claims, err := issuer.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Fatalf("expected uid user-1, got %s", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("unexpected email claim: %s", claims.Email)
	}
	if claims.TokenType != "" {
		t.Fatalf("access token must not carry typ, got %q", claims.TokenType)
	}
}

func TestRefreshTokenTypeEnforced(t *testing.T) {
	issuer := newTestIssuer(t)

	access, err := issuer.IssueAccessToken(TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	refresh, err := issuer.IssueRefreshToken(TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	if _, err := issuer.ParseRefreshToken(access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for access token on refresh parse, got %v", err)
	}
	if _, err := issuer.ParseAccessToken(refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for refresh token on access parse, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := newTestIssuer(t)

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.WithClock(func() time.Time { return issued })

	raw, err := issuer.IssueAccessToken(TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	issuer.WithClock(func() time.Time { return issued.Add(31 * time.Minute) })

	if _, err := issuer.ParseAccessToken(raw); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTamperedSignatureRejected(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, err := issuer.IssueAccessToken(TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := issuer.ParseAccessToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestForeignSecretRejected(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewTokenIssuer("another-secret-value", "callyou-auth", 30*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	raw, err := other.IssueAccessToken(TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	if _, err := issuer.ParseAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}
