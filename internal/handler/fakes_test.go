package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/auth"
	"github.com/sakif/article-api/internal/handler"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/service"
)

const testUserID = "user-1"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// asUser stands in for auth.RequireAuth.
func asUser(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), id)))
		})
	}
}

// newRouter mounts both handlers the way the server does, minus the real
// token check.
func newRouter(users handler.UserService, articles handler.ArticleService, maxUpload int64) http.Handler {
	uh := handler.NewUserHandler(users, maxUpload, newTestLogger())
	ah := handler.NewArticleHandler(articles, maxUpload, newTestLogger())

	r := chi.NewRouter()
	r.Post("/api/register", uh.HandleRegister)
	r.Post("/api/login", uh.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(asUser(testUserID))
		r.Get("/api/profile", uh.HandleProfile)
		r.Put("/api/profile", uh.HandleUpdateProfile)
		r.Post("/api/logout", uh.HandleLogout)
		r.Get("/api/articles", ah.HandleList)
		r.Post("/api/articles", ah.HandleCreate)
		r.Get("/api/articles/{id}", ah.HandleShow)
		r.Put("/api/articles/{id}", ah.HandleUpdate)
		r.Delete("/api/articles/{id}", ah.HandleDelete)
	})
	return r
}

type upload struct {
	filename string
	content  string
}

// multipartBody builds a multipart/form-data body and returns it with its
// Content-Type.
func multipartBody(t *testing.T, fields map[string]string, files map[string]upload) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, f := range files {
		fw, err := mw.CreateFormFile(k, f.filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

// readUpload drains u so tests can assert on what the handler passed through.
func readUpload(u *model.Upload) (string, string) {
	if u == nil {
		return "", ""
	}
	b, _ := io.ReadAll(u.Body)
	return u.Filename, string(b)
}

// fakeUsers records what the handler passed and returns canned results.
type fakeUsers struct {
	registerIn   service.RegisterInput
	photoName    string
	photoContent string
	registerErr  error

	loginEmail    string
	loginPassword string
	loginErr      error

	patch        service.ProfilePatch
	patchPhoto   string
	updateErr    error
	loggedOut    string
	profileCalls int
}

func (f *fakeUsers) Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.registerIn = in
	f.photoName, f.photoContent = readUpload(in.Photo)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &service.AuthResult{
		User:  &model.User{ID: testUserID, Name: in.Name, Email: in.Email, PhoneNumber: in.PhoneNumber},
		Token: "tok-register",
	}, nil
}

func (f *fakeUsers) Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error) {
	f.loginEmail, f.loginPassword = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.AuthResult{
		User:  &model.User{ID: testUserID, Name: "Ana"},
		Token: "tok-login",
	}, nil
}

func (f *fakeUsers) Profile(ctx context.Context, userID string) (*model.User, error) {
	f.profileCalls++
	if userID != testUserID {
		return nil, apperror.NotFound("user", userID)
	}
	return &model.User{ID: testUserID, Name: "Ana", Email: "ana@example.com"}, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, userID string, patch service.ProfilePatch) (*model.User, error) {
	f.patch = patch
	_, f.patchPhoto = readUpload(patch.Photo)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u := &model.User{ID: userID, Name: "Ana"}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	return u, nil
}

func (f *fakeUsers) Logout(ctx context.Context, userID string) error {
	f.loggedOut = userID
	return nil
}

// fakeArticles is an ArticleService with one stored article, "a1".
type fakeArticles struct {
	listUser    string
	listKeyword string
	listPage    int
	listResult  *service.ArticlePage

	createIn     service.ArticleInput
	coverName    string
	coverContent string

	patch      service.ArticlePatch
	patchCover string

	deleted string
}

func (f *fakeArticles) List(ctx context.Context, userID, keyword string, page int) (*service.ArticlePage, error) {
	f.listUser, f.listKeyword, f.listPage = userID, keyword, page
	if f.listResult != nil {
		return f.listResult, nil
	}
	return &service.ArticlePage{Page: page, PerPage: 10, LastPage: 1}, nil
}

func (f *fakeArticles) Get(ctx context.Context, userID, id string) (*model.Article, error) {
	if id != "a1" || userID != testUserID {
		return nil, apperror.NotFound("article", id)
	}
	return &model.Article{ID: "a1", UserID: userID, Title: "Hello", Slug: "hello"}, nil
}

func (f *fakeArticles) Create(ctx context.Context, userID string, in service.ArticleInput) (*model.Article, error) {
	f.createIn = in
	f.coverName, f.coverContent = readUpload(in.Cover)
	if in.Cover == nil {
		return nil, apperror.ValidationFailed("cover", "The cover field is required.")
	}
	return &model.Article{ID: "a2", UserID: userID, Title: in.Title, Content: in.Content}, nil
}

func (f *fakeArticles) Update(ctx context.Context, userID, id string, patch service.ArticlePatch) (*model.Article, error) {
	f.patch = patch
	_, f.patchCover = readUpload(patch.Cover)
	a, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Content != nil {
		a.Content = *patch.Content
	}
	return a, nil
}

func (f *fakeArticles) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	f.deleted = id
	return nil
}
