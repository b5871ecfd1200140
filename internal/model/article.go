package model

import (
	"io"
	"time"
)

// Article is a blog post owned by exactly one user.
//
// Slug is derived from Title and only changes when the title does.
// Cover is an asset store path under images/articles and is never empty
// for a persisted article.
type Article struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Title     string    `json:"title"      db:"title"`
	Slug      string    `json:"slug"       db:"slug"`
	Content   string    `json:"content"    db:"content"`
	Cover     string    `json:"cover"      db:"cover"`
	CoverURL  string    `json:"cover_url,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Upload is a file received from a client, before it reaches the asset store.
// Filename is whatever the client sent and must not be trusted as a path.
type Upload struct {
	Filename string
	Body     io.Reader
}
