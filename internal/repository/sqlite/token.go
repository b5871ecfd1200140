package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/repository"
)

var _ repository.TokenRepository = (*DB)(nil)

// CreateToken records a newly issued access token. The returned ID goes
// into the JWT as its "jti" claim.
func (db *DB) CreateToken(ctx context.Context, userID string, expiresAt time.Time) (*model.AccessToken, error) {
	tok := &model.AccessToken{
		ID:        xid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO access_tokens (id, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		tok.ID, tok.UserID, tok.CreatedAt, tok.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating access token: %w", err)
	}
	return tok, nil
}

// TokenExists reports whether the token has not been revoked.
func (db *DB) TokenExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_tokens WHERE id = ?`, id,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: looking up access token: %w", err)
	}
	return n > 0, nil
}

// DeleteUserTokens revokes every token the user holds and returns how many
// were removed. Zero is not an error.
func (db *DB) DeleteUserTokens(ctx context.Context, userID string) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE user_id = ?`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting tokens for user %s: %w", userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
