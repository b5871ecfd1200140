package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/service"
)

// ArticleService is what ArticleHandler needs from the service layer.
type ArticleService interface {
	List(ctx context.Context, userID, keyword string, page int) (*service.ArticlePage, error)
	Get(ctx context.Context, userID, id string) (*model.Article, error)
	Create(ctx context.Context, userID string, in service.ArticleInput) (*model.Article, error)
	Update(ctx context.Context, userID, id string, patch service.ArticlePatch) (*model.Article, error)
	Delete(ctx context.Context, userID, id string) error
}

var _ ArticleService = (*service.ArticleService)(nil)

// ArticleHandler serves the caller's own articles. Every route runs behind
// auth.RequireAuth; another user's article looks exactly like a missing one.
type ArticleHandler struct {
	articles  ArticleService
	maxUpload int64
	logger    *slog.Logger
}

func NewArticleHandler(articles ArticleService, maxUpload int64, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		articles:  articles,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// HandleList returns one page of the caller's articles.
//
// HTTP: GET /api/articles?keyword=foo&page=2
//
// A missing or non-numeric page is page 1.
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}

	res, err := h.articles.List(r.Context(), userID, q.Get("keyword"), page)
	if err != nil {
		writeError(w, err)
		return
	}

	// An empty page is [] in JSON, never null.
	articles := res.Articles
	if articles == nil {
		articles = []model.Article{}
	}

	writeJSON(w, http.StatusOK, Envelope{
		Message: msgSuccess,
		Data:    articles,
		Meta: Pagination{
			CurrentPage: res.Page,
			PerPage:     res.PerPage,
			Total:       res.Total,
			LastPage:    res.LastPage,
		},
	})
}

// HandleCreate stores a new article with its cover image.
//
// HTTP: POST /api/articles (multipart: title, content, cover)
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	f, err := parseForm(w, r, h.maxUpload)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.close()

	cover, err := f.file("cover")
	if err != nil {
		writeError(w, err)
		return
	}

	article, err := h.articles.Create(r.Context(), userID, service.ArticleInput{
		Title:   f.value("title"),
		Content: f.value("content"),
		Cover:   cover,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: msgSuccess, Data: article})
}

// HandleShow returns one article.
//
// HTTP: GET /api/articles/{id}
func (h *ArticleHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	article, err := h.articles.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: msgSuccess, Data: article})
}

// HandleUpdate applies a partial update; absent fields keep their values.
//
// HTTP: PUT /api/articles/{id} (multipart: any of title, content, cover)
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	f, err := parseForm(w, r, h.maxUpload)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.close()

	cover, err := f.file("cover")
	if err != nil {
		writeError(w, err)
		return
	}

	article, err := h.articles.Update(r.Context(), userID, chi.URLParam(r, "id"), service.ArticlePatch{
		Title:   f.optional("title"),
		Content: f.optional("content"),
		Cover:   cover,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: msgSuccess, Data: article})
}

// HandleDelete removes an article and its cover.
//
// HTTP: DELETE /api/articles/{id}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.articles.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: msgSuccess})
}
