package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a token that failed signature or structural checks.
var ErrInvalidToken = errors.New("jwt: invalid token")

// ErrExpiredToken indicates a structurally valid token past its expiry.
var ErrExpiredToken = errors.New("jwt: token expired")

// ErrWrongTokenType indicates a token whose typ claim does not match the
// operation, such as an access token presented on the refresh endpoint.
var ErrWrongTokenType = errors.New("jwt: wrong token type")

const refreshTokenType = "refresh"

// TokenClaims carries the identity payload embedded in both token kinds.
// Refresh tokens additionally set typ to "refresh".
type TokenClaims struct {
	UserID     string `json:"uid"`
	Email      string `json:"email,omitempty"`
	UserType   string `json:"user_type,omitempty"`
	IsVerified bool   `json:"is_verified,omitempty"`
	TokenType  string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 tokens with a shared secret. Tokens are
// stateless: nothing is persisted, and verification needs no storage access.
type TokenIssuer struct {
	secret          []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer for the given secret and lifetimes.
func NewTokenIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("jwt: token lifetimes must be positive")
	}

	return &TokenIssuer{
		secret:          []byte(secret),
		issuer:          issuer,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		now:             func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the issuer's notion of "now". Intended for tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// AccessTokenTTL exposes the configured access token lifetime.
func (t *TokenIssuer) AccessTokenTTL() time.Duration {
	return t.accessTokenTTL
}

// IssueAccessToken signs a short-lived access token for the subject.
func (t *TokenIssuer) IssueAccessToken(claims TokenClaims) (string, error) {
	return t.sign(claims, "", t.accessTokenTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the subject.
func (t *TokenIssuer) IssueRefreshToken(claims TokenClaims) (string, error) {
	return t.sign(claims, refreshTokenType, t.refreshTokenTTL)
}

func (t *TokenIssuer) sign(claims TokenClaims, tokenType string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.UserID) == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	now := t.now()
	claims.TokenType = tokenType
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates an access token and returns its claims.
// Refresh tokens are rejected.
func (t *TokenIssuer) ParseAccessToken(raw string) (*TokenClaims, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType == refreshTokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token and returns its claims.
// Access tokens are rejected so they cannot mint new pairs.
func (t *TokenIssuer) ParseRefreshToken(raw string) (*TokenClaims, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != refreshTokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (t *TokenIssuer) parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
