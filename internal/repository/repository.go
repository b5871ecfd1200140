// Package repository declares the persistence contracts the services depend on.
// The sqlite subpackage is the only implementation; service tests use fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/article-api/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ArticleFilter narrows an owner's articles. An empty Keyword matches all.
// Keyword is matched literally as a case-insensitive substring of the title.
type ArticleFilter struct {
	UserID  string
	Keyword string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	// GetArticle only finds articles owned by userID.
	GetArticle(ctx context.Context, userID, id string) (*model.Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter, opts ListOptions) ([]model.Article, int, error)
	UpdateArticle(ctx context.Context, article *model.Article) error
	DeleteArticle(ctx context.Context, userID, id string) error
}

type TokenRepository interface {
	CreateToken(ctx context.Context, userID string, expiresAt time.Time) (*model.AccessToken, error)
	TokenExists(ctx context.Context, id string) (bool, error)
	DeleteUserTokens(ctx context.Context, userID string) (int64, error)
}
