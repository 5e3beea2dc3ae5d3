// Package auth handles registration and login.  Credentials are owned by an
// IdentityProvider; the marketplace keeps a separate user profile that
// mirrors each identity through User.ExternalRef.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/parkall/internal/model"
	"github.com/iliyamo/parkall/internal/repository"
	"github.com/iliyamo/parkall/internal/utils"
)

var (
	// ErrIdentityExists is returned when the email is already registered.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrUnknownIdentity is returned when no identity has the email.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrBadCredentials is returned when the password does not match.
	ErrBadCredentials = errors.New("bad credentials")
)

// IdentityProvider issues and verifies user credentials.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password, displayName string) (uid string, err error)
	DeleteIdentity(ctx context.Context, uid string) error
	Authenticate(ctx context.Context, email, password string) (uid string, err error)
}

// CredentialStore persists local credentials.
type CredentialStore interface {
	Create(ctx context.Context, c *model.Credential) error
	GetByEmail(ctx context.Context, email string) (*model.Credential, error)
	DeleteByUID(ctx context.Context, uid string) error
}

// LocalProvider is an IdentityProvider backed by bcrypt hashes in the
// credentials table.
type LocalProvider struct {
	Store      CredentialStore
	BcryptCost int
}

func NewLocalProvider(store CredentialStore, cost int) *LocalProvider {
	return &LocalProvider{Store: store, BcryptCost: cost}
}

func (p *LocalProvider) CreateIdentity(ctx context.Context, email, password, displayName string) (string, error) {
	hash, err := utils.HashPassword(password, p.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	cred := &model.Credential{
		UID:          uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := p.Store.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return "", ErrIdentityExists
		}
		return "", err
	}
	return cred.UID, nil
}

func (p *LocalProvider) DeleteIdentity(ctx context.Context, uid string) error {
	return p.Store.DeleteByUID(ctx, uid)
}

func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	cred, err := p.Store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnknownIdentity
		}
		return "", err
	}
	if err := utils.VerifyPassword(cred.PasswordHash, password); err != nil {
		if errors.Is(err, utils.ErrPasswordMismatch) {
			return "", ErrBadCredentials
		}
		return "", fmt.Errorf("verify password: %w", err)
	}
	return cred.UID, nil
}
