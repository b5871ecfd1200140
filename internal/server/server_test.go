package server_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/server"
	"github.com/sakif/article-api/internal/service"
)

const goodToken = "good-token"

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, raw string) (string, error) {
	if raw != goodToken {
		return "", errors.New("bad token")
	}
	return "user-1", nil
}

type stubUsers struct{}

func (stubUsers) Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	return nil, apperror.ValidationFailed("name", "The name field is required.")
}

func (stubUsers) Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return nil, apperror.Unauthorized("Unauthorized")
}

func (stubUsers) Profile(ctx context.Context, userID string) (*model.User, error) {
	return &model.User{ID: userID, Name: "Ana"}, nil
}

func (stubUsers) UpdateProfile(ctx context.Context, userID string, patch service.ProfilePatch) (*model.User, error) {
	return &model.User{ID: userID}, nil
}

func (stubUsers) Logout(ctx context.Context, userID string) error { return nil }

type stubArticles struct{}

func (stubArticles) List(ctx context.Context, userID, keyword string, page int) (*service.ArticlePage, error) {
	return &service.ArticlePage{Page: page, PerPage: 10, LastPage: 1}, nil
}

func (stubArticles) Get(ctx context.Context, userID, id string) (*model.Article, error) {
	return nil, apperror.NotFound("article", id)
}

func (stubArticles) Create(ctx context.Context, userID string, in service.ArticleInput) (*model.Article, error) {
	return &model.Article{ID: "a1", UserID: userID}, nil
}

func (stubArticles) Update(ctx context.Context, userID, id string, patch service.ArticlePatch) (*model.Article, error) {
	return nil, apperror.NotFound("article", id)
}

func (stubArticles) Delete(ctx context.Context, userID, id string) error {
	return apperror.NotFound("article", id)
}

type stubDB struct{ err error }

func (d stubDB) Ping(ctx context.Context) error { return d.err }

func newTestServer(t *testing.T, cfg server.Config) *server.Server {
	t.Helper()
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{"*"}
	}
	srv, err := server.New(cfg, server.Deps{
		Users:    stubUsers{},
		Articles: stubArticles{},
		Verifier: stubVerifier{},
		DB:       stubDB{},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := server.New(server.Config{}, server.Deps{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	h := newTestServer(t, server.Config{}).Handler()

	authed := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+goodToken)
		return req
	}

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"health", httptest.NewRequest(http.MethodGet, "/healthz", nil), http.StatusOK},
		{"login is public", httptest.NewRequest(http.MethodPost, "/api/login", nil), http.StatusUnauthorized},
		{"register is public", httptest.NewRequest(http.MethodPost, "/api/register", nil), http.StatusUnprocessableEntity},
		{"profile needs a token", httptest.NewRequest(http.MethodGet, "/api/profile", nil), http.StatusUnauthorized},
		{"profile with token", authed(http.MethodGet, "/api/profile"), http.StatusOK},
		{"articles need a token", httptest.NewRequest(http.MethodGet, "/api/articles", nil), http.StatusUnauthorized},
		{"articles with token", authed(http.MethodGet, "/api/articles"), http.StatusOK},
		{"show missing article", authed(http.MethodGet, "/api/articles/x"), http.StatusNotFound},
		{"delete missing article", authed(http.MethodDelete, "/api/articles/x"), http.StatusNotFound},
		{"logout with token", authed(http.MethodPost, "/api/logout"), http.StatusOK},
		{"unknown route", httptest.NewRequest(http.MethodGet, "/nope", nil), http.StatusNotFound},
		{"storage not mounted without a dir", httptest.NewRequest(http.MethodGet, "/storage/a.png", nil), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestRoutes_RejectedTokenEnvelope(t *testing.T) {
	h := newTestServer(t, server.Config{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rr := do(t, h, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"Unauthenticated.","data":null}`, rr.Body.String())
}

func TestStorageFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images", "articles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "articles", "1_c.txt"), []byte("cover"), 0o644))

	h := newTestServer(t, server.Config{AssetDir: dir}).Handler()

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/storage/images/articles/1_c.txt", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "cover", rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/storage/images/articles/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, server.Config{AllowedOrigins: []string{"https://app.example"}}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/articles", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := do(t, h, req)

	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = do(t, h, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv := newTestServer(t, server.Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
