package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/parkall/internal/model"
)

// CredentialRepo persists the local identity provider's login records.
type CredentialRepo struct{ DB *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

// Create inserts a credential row.
func (r *CredentialRepo) Create(ctx context.Context, c *model.Credential) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO credentials (uid, email, display_name, password_hash, created_at) VALUES (?,?,?,?,?)",
		c.UID, c.Email, c.DisplayName, c.PasswordHash, c.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail returns the credential for a normalized email.
func (r *CredentialRepo) GetByEmail(ctx context.Context, email string) (*model.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var c model.Credential
	err := r.DB.QueryRowContext(ctx,
		"SELECT uid, email, display_name, password_hash, created_at FROM credentials WHERE email=? LIMIT 1",
		email).Scan(&c.UID, &c.Email, &c.DisplayName, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// DeleteByUID removes a credential. Deleting a missing uid is not an error.
func (r *CredentialRepo) DeleteByUID(ctx context.Context, uid string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM credentials WHERE uid=?", uid)
	return err
}
