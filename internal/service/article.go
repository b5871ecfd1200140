package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"
	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/repository"
	"github.com/sakif/article-api/internal/storage"
)

// ArticlesPerPage is fixed; clients pick the page, not its size.
const ArticlesPerPage = 10

// ArticleInput is a new article. Cover is mandatory.
type ArticleInput struct {
	Title   string        `json:"title"   validate:"required,max=255"`
	Content string        `json:"content" validate:"required"`
	Cover   *model.Upload `json:"cover"   validate:"-"`
}

// ArticlePatch is a partial update. A nil field keeps its current value.
// A non-nil field is validated like ArticleInput, so an empty title is
// rejected rather than treated as "not sent".
type ArticlePatch struct {
	Title   *string
	Content *string
	Cover   *model.Upload
}

// ArticlePage is one page of List results.
type ArticlePage struct {
	Articles []model.Article
	Page     int
	PerPage  int
	Total    int
	LastPage int
}

type ArticleService struct {
	repo   repository.ArticleRepository
	assets storage.Store
	logger *slog.Logger
}

func NewArticleService(repo repository.ArticleRepository, assets storage.Store, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		repo:   repo,
		assets: assets,
		logger: logger,
	}
}

// List returns page number page of userID's articles whose title contains
// keyword, ignoring case. Pages start at 1; anything lower is treated as 1.
// A page past the end is empty, not an error.
func (s *ArticleService) List(ctx context.Context, userID, keyword string, page int) (*ArticlePage, error) {
	if page < 1 {
		page = 1
	}

	articles, total, err := s.repo.ListArticles(ctx,
		repository.ArticleFilter{UserID: userID, Keyword: strings.TrimSpace(keyword)},
		repository.ListOptions{Limit: ArticlesPerPage, Offset: (page - 1) * ArticlesPerPage},
	)
	if err != nil {
		s.logger.Error("failed to list articles",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	for i := range articles {
		s.withURL(&articles[i])
	}

	lastPage := (total + ArticlesPerPage - 1) / ArticlesPerPage
	if lastPage < 1 {
		lastPage = 1
	}

	return &ArticlePage{
		Articles: articles,
		Page:     page,
		PerPage:  ArticlesPerPage,
		Total:    total,
		LastPage: lastPage,
	}, nil
}

// Get returns the article if userID owns it. Someone else's article is
// reported as not found.
func (s *ArticleService) Get(ctx context.Context, userID, id string) (*model.Article, error) {
	a, err := s.repo.GetArticle(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.withURL(a), nil
}

// Create validates in, stores the cover and then inserts the row.
// If the insert fails the cover is removed again, so a failed create
// leaves nothing behind.
func (s *ArticleService) Create(ctx context.Context, userID string, in ArticleInput) (*model.Article, error) {
	in.Title = strings.TrimSpace(in.Title)

	errs := fieldErrors{}
	if err := errs.checkStruct(in); err != nil {
		return nil, err
	}
	if in.Cover == nil {
		errs.add("cover", "The cover field is required.")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	cover, err := s.assets.Save(ctx, storage.CategoryArticleCovers, in.Cover.Filename, in.Cover.Body)
	if err != nil {
		s.logger.Error("failed to store article cover",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StorageFailed("save cover", err)
	}

	a := &model.Article{
		UserID:  userID,
		Title:   in.Title,
		Slug:    slug.Make(in.Title),
		Content: in.Content,
		Cover:   cover,
	}

	if err := s.repo.CreateArticle(ctx, a); err != nil {
		s.logger.Error("failed to create article",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		discardAsset(ctx, s.assets, s.logger, cover, "article insert failed")
		return nil, err
	}

	s.logger.Info("article created",
		slog.String("id", a.ID),
		slog.String("user_id", userID),
	)
	return s.withURL(a), nil
}

// Update applies patch to an owned article.
//
// COVER REPLACEMENT ORDER:
// new cover saved → row updated → old cover deleted. At every step the row
// points at a file that exists. If the row update fails, the new cover is
// deleted and the old one is still in place.
func (s *ArticleService) Update(ctx context.Context, userID, id string, patch ArticlePatch) (*model.Article, error) {
	a, err := s.repo.GetArticle(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	errs := fieldErrors{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := errs.checkVar("title", title, "required,max=255"); err != nil {
			return nil, err
		}
		a.Title = title
		a.Slug = slug.Make(title)
	}
	if patch.Content != nil {
		if err := errs.checkVar("content", *patch.Content, "required"); err != nil {
			return nil, err
		}
		a.Content = *patch.Content
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	oldCover := ""
	if patch.Cover != nil {
		cover, err := s.assets.Save(ctx, storage.CategoryArticleCovers, patch.Cover.Filename, patch.Cover.Body)
		if err != nil {
			s.logger.Error("failed to store article cover",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			return nil, apperror.StorageFailed("save cover", err)
		}
		oldCover = a.Cover
		a.Cover = cover
	}

	if err := s.repo.UpdateArticle(ctx, a); err != nil {
		if patch.Cover != nil {
			discardAsset(ctx, s.assets, s.logger, a.Cover, "article update failed")
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update article",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	discardAsset(ctx, s.assets, s.logger, oldCover, "cover replaced")

	s.logger.Info("article updated", slog.String("id", a.ID))
	return s.withURL(a), nil
}

// Delete removes the cover first and then the row. If the cover can't be
// removed the row stays, so nothing ends up pointing at a missing file.
func (s *ArticleService) Delete(ctx context.Context, userID, id string) error {
	a, err := s.repo.GetArticle(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.assets.Delete(ctx, a.Cover); err != nil {
		s.logger.Error("failed to delete article cover",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return apperror.StorageFailed("delete cover", err)
	}

	if err := s.repo.DeleteArticle(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("article deleted", slog.String("id", id))
	return nil
}

func (s *ArticleService) withURL(a *model.Article) *model.Article {
	a.CoverURL = s.assets.URL(a.Cover)
	return a
}
