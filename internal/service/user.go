package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/auth"
	"github.com/sakif/article-api/internal/model"
	"github.com/sakif/article-api/internal/notify"
	"github.com/sakif/article-api/internal/phone"
	"github.com/sakif/article-api/internal/repository"
	"github.com/sakif/article-api/internal/storage"
)

const (
	msgEmailTaken      = "The email has already been taken."
	msgPasswordTooLong = "The password field must not be greater than 72 bytes."
	msgInvalidLogin    = "Unauthorized"
)

// RegisterInput is a new account. Photo is optional.
type RegisterInput struct {
	Name        string        `json:"name"         validate:"required,max=255"`
	Email       string        `json:"email"        validate:"required,email,max=255"`
	PhoneNumber string        `json:"phone_number" validate:"required,max=32"`
	Password    string        `json:"password"     validate:"required,min=8"`
	Photo       *model.Upload `json:"photo"        validate:"-"`
}

// ProfilePatch is a partial profile update. A nil field keeps its value.
type ProfilePatch struct {
	Name        *string
	Email       *string
	PhoneNumber *string
	Password    *string
	Photo       *model.Upload
}

// AuthResult is returned by Register and Authenticate.
type AuthResult struct {
	User  *model.User
	Token string
}

// UserService owns accounts: registration, login, profile and logout.
type UserService struct {
	users     repository.UserRepository
	sessions  TokenIssuer
	passwords *auth.PasswordService
	assets    storage.Store
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	sessions TokenIssuer,
	passwords *auth.PasswordService,
	assets storage.Store,
	notifier notify.Notifier,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		assets:    assets,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register creates an account and logs it in.
//
// ORDER OF OPERATIONS:
//  1. validate everything, including email uniqueness
//  2. hash the password
//  3. store the photo (if any)
//  4. insert the row; on failure the photo is deleted again
//  5. issue a token and queue the welcome notifications
//
// Nothing is written until step 3, so a rejected registration leaves no
// user and no file behind.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	errs := fieldErrors{}
	if err := errs.checkStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		errs.add("password", msgPasswordTooLong)
	}
	if !errs.has("email") {
		taken, err := s.emailTaken(ctx, in.Email, "")
		if err != nil {
			return nil, err
		}
		if taken {
			errs.add("email", msgEmailTaken)
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service: hashing password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PhoneNumber:  phone.Normalize(in.PhoneNumber),
		PasswordHash: hash,
	}

	if in.Photo != nil {
		p, err := s.assets.Save(ctx, storage.CategoryUserPhotos, in.Photo.Filename, in.Photo.Body)
		if err != nil {
			s.logger.Error("failed to store user photo",
				slog.String("email", in.Email),
				slog.String("error", err.Error()),
			)
			return nil, apperror.StorageFailed("save photo", err)
		}
		user.Photo = p
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		discardAsset(ctx, s.assets, s.logger, user.Photo, "user insert failed")
		// Another registration with the same email won the race.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFields(map[string][]string{"email": {msgEmailTaken}})
		}
		s.logger.Error("failed to create user",
			slog.String("email", in.Email),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to issue token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.notifier.Notify(notify.Recipient{
		Name:  user.Name,
		Phone: user.PhoneNumber,
		Email: user.Email,
	})

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return &AuthResult{User: s.withURL(user), Token: token}, nil
}

// Authenticate checks an email and password pair.
//
// Unknown email and wrong password give the same error, and both paths
// run one bcrypt comparison so timing doesn't tell them apart.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.passwords.VerifyDummy(password)
		return nil, apperror.Unauthorized(msgInvalidLogin)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed", slog.String("user_id", user.ID))
		return nil, apperror.Unauthorized(msgInvalidLogin)
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to issue token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: s.withURL(user), Token: token}, nil
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withURL(user), nil
}

// UpdateProfile applies patch with the same rules as Register. The email
// uniqueness check ignores the caller's own row, and a new photo replaces
// the old one with the save → persist → delete-old order.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	errs := fieldErrors{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := errs.checkVar("name", name, "required,max=255"); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if err := errs.checkVar("email", email, "required,email,max=255"); err != nil {
			return nil, err
		}
		if !errs.has("email") && email != user.Email {
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				errs.add("email", msgEmailTaken)
			}
		}
		user.Email = email
	}
	if patch.PhoneNumber != nil {
		raw := strings.TrimSpace(*patch.PhoneNumber)
		if err := errs.checkVar("phone_number", raw, "required,max=32"); err != nil {
			return nil, err
		}
		user.PhoneNumber = phone.Normalize(raw)
	}
	if patch.Password != nil {
		if err := errs.checkVar("password", *patch.Password, "required,min=8"); err != nil {
			return nil, err
		}
		if len(*patch.Password) > auth.MaxPasswordBytes {
			errs.add("password", msgPasswordTooLong)
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if patch.Password != nil {
		hash, err := s.passwords.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("service: hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	oldPhoto := ""
	if patch.Photo != nil {
		p, err := s.assets.Save(ctx, storage.CategoryUserPhotos, patch.Photo.Filename, patch.Photo.Body)
		if err != nil {
			s.logger.Error("failed to store user photo",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.StorageFailed("save photo", err)
		}
		oldPhoto = user.Photo
		user.Photo = p
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if patch.Photo != nil {
			discardAsset(ctx, s.assets, s.logger, user.Photo, "user update failed")
		}
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFields(map[string][]string{"email": {msgEmailTaken}})
		}
		s.logger.Error("failed to update user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	discardAsset(ctx, s.assets, s.logger, oldPhoto, "photo replaced")

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return s.withURL(user), nil
}

// Logout revokes every token the user holds, on every device.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("failed to revoke tokens",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// emailTaken reports whether email belongs to an account other than exceptID.
func (s *UserService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != exceptID, nil
}

func (s *UserService) withURL(u *model.User) *model.User {
	u.PhotoURL = s.assets.URL(u.Photo)
	return u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
