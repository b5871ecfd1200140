// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take interfaces (repositories, the asset store, the notifier),
// never concrete types, so tests inject in-memory fakes.
//
// OWNERSHIP:
// Every article operation takes the caller's user ID as a parameter. There
// is no "current user" hidden in a global or pulled from the request here.
// The handler reads it from the context and passes it down explicitly.
package service

import (
	"context"
	"log/slog"

	"github.com/sakif/article-api/internal/storage"
)

// TokenIssuer issues and revokes bearer tokens. *auth.Sessions implements it.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (string, error)
	RevokeAll(ctx context.Context, userID string) error
}

// discardAsset removes an asset that is no longer referenced. Failures are
// logged only: the operation that orphaned it has already succeeded or
// already failed for a better reason.
func discardAsset(ctx context.Context, store storage.Store, logger *slog.Logger, path, reason string) {
	if path == "" {
		return
	}
	if err := store.Delete(ctx, path); err != nil {
		logger.Error("failed to delete asset",
			slog.String("path", path),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}
