package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops satisfying ArticleRepository this line fails to build,
// long before anything tries to wire it into a service.
var _ repository.ArticleRepository = (*DB)(nil)

const articleColumns = `id, user_id, title, slug, content, cover, created_at, updated_at`

// CreateArticle inserts a new article. ID and timestamps are set here, so
// the caller's struct is complete once this returns.
func (db *DB) CreateArticle(ctx context.Context, article *model.Article) error {
	now := time.Now().UTC()
	article.ID = xid.New().String()
	article.CreatedAt = now
	article.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.UserID,
		article.Title,
		article.Slug,
		article.Content,
		article.Cover,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating article: %w", err)
	}
	return nil
}

// GetArticle retrieves one article by ID, but only if userID owns it.
//
// OWNERSHIP IN THE WHERE CLAUSE:
// Another user's article and a missing article look identical to the caller.
// Both are apperror.ErrNotFound, so IDs of other users' articles can't be probed.
func (db *DB) GetArticle(ctx context.Context, userID, id string) (*model.Article, error) {
	var a model.Article
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+articleColumns+`
		 FROM articles
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&a.ID, &a.UserID, &a.Title, &a.Slug, &a.Content, &a.Cover,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("article", id)
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", id, err)
	}
	return &a, nil
}

// ListArticles returns one page of an owner's articles plus the total number
// of matches across all pages.
//
// ORDERING:
// rowid grows with every insert, so ORDER BY rowid is creation order even
// when two rows share a created_at second. That keeps LIMIT/OFFSET pages
// from overlapping or skipping rows.
//
// KEYWORD:
// The keyword is a literal substring. % and _ are escaped so a search for
// "100%" doesn't match everything.
func (db *DB) ListArticles(ctx context.Context, filter repository.ArticleFilter, opts repository.ListOptions) ([]model.Article, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where := `WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.Keyword != "" {
		where += ` AND LOWER(title) LIKE '%' || LOWER(?) || '%' ESCAPE '\'`
		args = append(args, escapeLike(filter.Keyword))
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting articles: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+`
		 FROM articles `+where+`
		 ORDER BY rowid ASC
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	defer rows.Close()

	articles := make([]model.Article, 0, limit)
	for rows.Next() {
		var a model.Article
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Title, &a.Slug, &a.Content, &a.Cover,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating articles: %w", err)
	}

	return articles, total, nil
}

// UpdateArticle writes title, slug, content and cover. The owner is part of
// the WHERE clause, so a foreign article reports NotFound.
func (db *DB) UpdateArticle(ctx context.Context, article *model.Article) error {
	article.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE articles
		 SET title = ?, slug = ?, content = ?, cover = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		article.Title,
		article.Slug,
		article.Content,
		article.Cover,
		article.UpdatedAt,
		article.ID,
		article.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating article %s: %w", article.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", article.ID)
	}
	return nil
}

// DeleteArticle removes an owner's article. Same RowsAffected pattern as Update.
func (db *DB) DeleteArticle(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM articles WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
