package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/auth"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/notify"
	"github.com/sakif/article-api/internal/repository"
)

// Hand-written fakes: each is an in-memory version of one dependency,
// with an error field to simulate a failure where a test needs one.

// =========================================================================
// ASSET STORE
// =========================================================================

type fakeStore struct {
	files   map[string]string
	n       int
	saveErr error
	delErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string]string)}
}

func (f *fakeStore) Save(_ context.Context, category, filename string, body io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.n++
	p := fmt.Sprintf("%s/%d_%s", category, 1700000000+f.n, filename)
	f.files[p] = string(data)
	return p, nil
}

func (f *fakeStore) Delete(_ context.Context, p string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, p)
	delete(f.files, p)
	return nil
}

func (f *fakeStore) URL(p string) string {
	if p == "" {
		return ""
	}
	return "http://assets.test/" + p
}

func fileUpload(name, body string) *model.Upload {
	return &model.Upload{Filename: name, Body: strings.NewReader(body)}
}

// =========================================================================
// ARTICLE REPOSITORY
// =========================================================================

type fakeArticleRepo struct {
	articles  map[string]*model.Article
	order     []string
	nextID    int
	createErr error
	updateErr error
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[string]*model.Article)}
}

func (f *fakeArticleRepo) CreateArticle(_ context.Context, a *model.Article) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	a.ID = fmt.Sprintf("art-%d", f.nextID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.articles[a.ID] = &stored
	f.order = append(f.order, a.ID)
	return nil
}

func (f *fakeArticleRepo) GetArticle(_ context.Context, userID, id string) (*model.Article, error) {
	a, ok := f.articles[id]
	if !ok || a.UserID != userID {
		return nil, apperror.NotFound("article", id)
	}
	result := *a
	return &result, nil
}

func (f *fakeArticleRepo) ListArticles(_ context.Context, filter repository.ArticleFilter, opts repository.ListOptions) ([]model.Article, int, error) {
	var matched []model.Article
	for _, id := range f.order {
		a, ok := f.articles[id]
		if !ok || a.UserID != filter.UserID {
			continue
		}
		if !strings.Contains(strings.ToLower(a.Title), strings.ToLower(filter.Keyword)) {
			continue
		}
		matched = append(matched, *a)
	}
	total := len(matched)
	if opts.Offset >= total {
		return []model.Article{}, total, nil
	}
	matched = matched[opts.Offset:]
	if opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, total, nil
}

func (f *fakeArticleRepo) UpdateArticle(_ context.Context, a *model.Article) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cur, ok := f.articles[a.ID]
	if !ok || cur.UserID != a.UserID {
		return apperror.NotFound("article", a.ID)
	}
	stored := *a
	f.articles[a.ID] = &stored
	return nil
}

func (f *fakeArticleRepo) DeleteArticle(_ context.Context, userID, id string) error {
	a, ok := f.articles[id]
	if !ok || a.UserID != userID {
		return apperror.NotFound("article", id)
	}
	delete(f.articles, id)
	return nil
}

// =========================================================================
// USER REPOSITORY
// =========================================================================

type fakeUserRepo struct {
	users     map[string]*model.User
	nextID    int
	createErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, u *model.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) count() int { return len(f.users) }

// =========================================================================
// TOKENS AND NOTIFICATIONS
// =========================================================================

type fakeIssuer struct {
	issued  map[string][]string
	revoked []string
	n       int
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{issued: make(map[string][]string)}
}

func (f *fakeIssuer) Issue(_ context.Context, userID string) (string, error) {
	f.n++
	tok := fmt.Sprintf("token-%d", f.n)
	f.issued[userID] = append(f.issued[userID], tok)
	return tok, nil
}

func (f *fakeIssuer) RevokeAll(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	delete(f.issued, userID)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Recipient
}

func (f *fakeNotifier) Notify(r notify.Recipient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
}

// =========================================================================
// HELPERS
// =========================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestArticleService(t *testing.T) (*ArticleService, *fakeArticleRepo, *fakeStore) {
	t.Helper()
	repo := newFakeArticleRepo()
	store := newFakeStore()
	return NewArticleService(repo, store, newTestLogger()), repo, store
}

type userFixture struct {
	svc      *UserService
	repo     *fakeUserRepo
	store    *fakeStore
	issuer   *fakeIssuer
	notifier *fakeNotifier
}

func newTestUserService(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		repo:     newFakeUserRepo(),
		store:    newFakeStore(),
		issuer:   newFakeIssuer(),
		notifier: &fakeNotifier{},
	}
	f.svc = NewUserService(f.repo, f.issuer, auth.NewPasswordServiceWithCost(4), f.store, f.notifier, newTestLogger())
	return f
}

// fieldsOf extracts the field map from a validation error, or fails.
func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	appErr, ok := err.(*apperror.AppError)
	if !ok {
		t.Fatalf("error %v (%T) is not an *apperror.AppError", err, err)
	}
	return appErr.FieldErrors()
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
