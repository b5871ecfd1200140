package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/auth"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/service"
)

const tokenTypeBearer = "Bearer"

// UserService is what UserHandler needs from the service layer.
// *service.UserService implements it; tests pass a fake.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, patch service.ProfilePatch) (*model.User, error)
	Logout(ctx context.Context, userID string) error
}

var _ UserService = (*service.UserService)(nil)

// UserHandler serves account endpoints: register, login, profile and logout.
type UserHandler struct {
	users     UserService
	maxUpload int64
	logger    *slog.Logger
}

func NewUserHandler(users UserService, maxUpload int64, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type registerResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/register (multipart: name, email, phone_number, password, photo?)
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r, h.maxUpload)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.close()

	photo, err := f.file("photo")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:        f.value("name"),
		Email:       f.value("email"),
		PhoneNumber: f.value("phone_number"),
		Password:    f.value("password"),
		Photo:       photo,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Envelope{
		Message: msgSuccess,
		Data: registerResponse{
			User:        res.User,
			AccessToken: res.Token,
			TokenType:   tokenTypeBearer,
		},
	})
}

// HandleLogin exchanges an email and password for a bearer token.
//
// HTTP: POST /api/login (JSON or form: email, password)
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r, h.maxUpload)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.close()

	res, err := h.users.Authenticate(r.Context(), f.value("email"), f.value("password"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		Message: fmt.Sprintf("Hi %s, welcome to home", res.User.Name),
		Data: tokenResponse{
			AccessToken: res.Token,
			TokenType:   tokenTypeBearer,
		},
	})
}

// HandleProfile returns the caller's account.
//
// HTTP: GET /api/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "Your Profile", Data: user})
}

// HandleUpdateProfile applies a partial update. Only fields present in the
// body are changed.
//
// HTTP: PUT /api/profile (multipart: any of name, email, phone_number, password, photo)
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
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

	photo, err := f.file("photo")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, service.ProfilePatch{
		Name:        f.optional("name"),
		Email:       f.optional("email"),
		PhoneNumber: f.optional("phone_number"),
		Password:    f.optional("password"),
		Photo:       photo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "Successfully updated", Data: user})
}

// HandleLogout revokes all of the caller's tokens.
//
// HTTP: POST /api/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.Logout(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "You have been logged out"})
}

// currentUser reads the ID that auth.RequireAuth put in the context.
// A route mounted without the middleware gets a 401 here rather than
// running with an empty owner.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Unauthenticated."))
		return "", false
	}
	return userID, true
}
