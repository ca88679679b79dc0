// Package auth verifies bearer credentials issued by the identity provider.
// Token cryptography is delegated to the JWT library; this package only
// extracts the subject and profile claims the rest of the service needs.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Static errors for credential verification.
var (
	// ErrMissingCredential is returned when the Authorization header is
	// absent or not a Bearer scheme.
	ErrMissingCredential = errors.New("auth: missing or invalid Authorization header")
	// ErrInvalidToken is returned for malformed, unsigned or forged tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims carries the identity-provider claims the service consumes.
type Claims struct {
	// Subject is the external identity subject id (unique per user).
	Subject string
	// Email is the user's email address, if present in the token.
	Email string
	// FullName is the user's display name, if present in the token.
	FullName string
}

// Verifier validates a bearer credential and yields the caller's claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// tokenClaims is the JWT claim set accepted by the verifier.
type tokenClaims struct {
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256-signed tokens with a shared secret.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for tokens signed with the given secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify parses and validates the token, returning the identity claims.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	fullName := claims.FullName
	if fullName == "" {
		fullName = strings.TrimSpace(claims.FirstName + " " + claims.LastName)
	}

	return Claims{
		Subject:  claims.Subject,
		Email:    claims.Email,
		FullName: fullName,
	}, nil
}

// Sign issues a token for the given claims. Used by local development
// tooling and tests; production tokens come from the identity provider.
func (v *JWTVerifier) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:    claims.Email,
		FullName: claims.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

// FromRequest extracts the bearer token from an HTTP request.
func FromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingCredential
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}
