package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/parkall/internal/model"
	"github.com/iliyamo/parkall/internal/repository"
	"github.com/iliyamo/parkall/internal/utils"
)

// Accepted password lengths in bytes.  The upper bound is bcrypt's input
// limit.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 72
)

// ProfileStore persists marketplace user profiles.
type ProfileStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Service registers users and issues session tokens.
type Service struct {
	Identities IdentityProvider
	Profiles   ProfileStore
	Secret     string
	TTLMin     int
	Logger     *slog.Logger
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// RegisterInput holds the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Register creates the identity and then the profile that mirrors it.  If
// the profile cannot be written the identity is deleted again so that no
// credential exists without a profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, model.InvalidInput("name, email and password are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, model.InvalidInput("invalid email address")
	}
	if len(in.Password) < MinPasswordLen {
		return nil, model.InvalidInput("password must be at least 6 characters")
	}
	if len(in.Password) > MaxPasswordLen {
		return nil, model.InvalidInput("password must be at most 72 bytes")
	}

	uid, err := s.Identities.CreateIdentity(ctx, email, in.Password, name)
	if err != nil {
		if errors.Is(err, ErrIdentityExists) {
			return nil, model.InvalidInput("email already registered")
		}
		s.logger().Error("create identity failed", "email", email, "error", err)
		return nil, model.Internal("create identity failed", err)
	}

	u := &model.User{Name: name, Email: email, ExternalRef: uid}
	if err := s.Profiles.Create(ctx, u); err != nil {
		if derr := s.Identities.DeleteIdentity(context.WithoutCancel(ctx), uid); derr != nil {
			s.logger().Error("orphaned identity after profile failure", "uid", uid, "error", derr)
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, model.InvalidInput("email already registered")
		}
		s.logger().Error("create profile failed", "email", email, "error", err)
		return nil, model.Internal("create user failed", err)
	}

	s.logger().Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the credentials and issues an access token whose subject
// is the profile ID.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.InvalidInput("email and password are required")
	}

	u, err := s.Profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NotFound("user not found")
		}
		return nil, model.Internal("load user failed", err)
	}

	uid, err := s.Identities.Authenticate(ctx, email, password)
	switch {
	case errors.Is(err, ErrBadCredentials), errors.Is(err, ErrUnknownIdentity):
		return nil, model.InvalidInput("invalid credentials")
	case err != nil:
		return nil, model.Internal("authenticate failed", err)
	case uid != u.ExternalRef:
		s.logger().Error("identity does not match profile", "user_id", u.ID, "uid", uid)
		return nil, model.InvalidInput("invalid credentials")
	}

	tok, err := utils.NewAccessToken(s.Secret, u.ID, u.Email, s.TTLMin)
	if err != nil {
		return nil, model.Internal("issue token failed", err)
	}
	return &Session{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

// Me returns the profile behind a verified token subject.
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NotFound("user not found")
		}
		return nil, model.Internal("load user failed", err)
	}
	return u, nil
}
