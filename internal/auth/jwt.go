// Package auth issues, checks and revokes bearer tokens, and hashes passwords.
//
// TOKEN FLOW:
//  1. Register or login succeeds → Sessions.Issue stores an access_tokens row
//     and signs a JWT whose "jti" is that row's ID
//  2. The client sends "Authorization: Bearer <jwt>" on every protected call
//  3. RequireAuth verifies the signature and expiry, then checks that the
//     row still exists
//  4. Logout deletes every row for the user, so all their JWTs stop working
//     at once even though they are still cryptographically valid
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"userID","jti":"tokenID","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "article-api"

// DefaultTTL is how long an access token lives when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// TokenService signs and verifies JWTs with an HMAC secret.
// It knows nothing about revocation; see Sessions for that.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime given to new tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Claims is what a valid token tells us.
type Claims struct {
	UserID  string
	TokenID string
}

// Sign creates a JWT for userID carrying tokenID as its "jti".
func (s *TokenService) Sign(userID, tokenID string, expiresAt time.Time) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and does carry an expiry
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents "alg: none" confusion attacks)
func (s *TokenService) Validate(tokenStr string) (Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("auth: token expired")
		}
		return Claims{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Claims{}, fmt.Errorf("auth: token has no subject")
	}
	if c.ID == "" {
		return Claims{}, fmt.Errorf("auth: token has no id")
	}

	return Claims{UserID: c.Subject, TokenID: c.ID}, nil
}
