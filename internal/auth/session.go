package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/article-api/internal/repository"
)

// Sessions ties signed JWTs to access_tokens rows so they can be revoked.
type Sessions struct {
	tokens *TokenService
	store  repository.TokenRepository
}

func NewSessions(tokens *TokenService, store repository.TokenRepository) *Sessions {
	return &Sessions{tokens: tokens, store: store}
}

// Issue records a new token for userID and returns the signed JWT.
func (s *Sessions) Issue(ctx context.Context, userID string) (string, error) {
	expiresAt := time.Now().Add(s.tokens.TTL())

	row, err := s.store.CreateToken(ctx, userID, expiresAt)
	if err != nil {
		return "", fmt.Errorf("auth: recording token: %w", err)
	}
	return s.tokens.Sign(userID, row.ID, expiresAt)
}

// Verify returns the user a bearer token belongs to. A well-signed token
// whose row was deleted by logout is rejected.
func (s *Sessions) Verify(ctx context.Context, raw string) (string, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return "", err
	}

	ok, err := s.store.TokenExists(ctx, claims.TokenID)
	if err != nil {
		return "", fmt.Errorf("auth: checking token: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("auth: token revoked")
	}
	return claims.UserID, nil
}

// RevokeAll deletes every token the user holds.
func (s *Sessions) RevokeAll(ctx context.Context, userID string) error {
	if _, err := s.store.DeleteUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("auth: revoking tokens: %w", err)
	}
	return nil
}
