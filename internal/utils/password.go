package utils

import (
    "errors"

    "golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by VerifyPassword when the password does
// not match the hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// ErrPasswordTooLong is returned for passwords bcrypt would truncate.
var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// HashPassword returns a bcrypt hash of plain.  A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
    if len(plain) > 72 {
        return "", ErrPasswordTooLong
    }
    if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
        cost = bcrypt.DefaultCost
    }
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyPassword compares plain against hash.  It returns
// ErrPasswordMismatch for a wrong password and any other error for a
// corrupt hash.
func VerifyPassword(hash, plain string) error {
    err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
    if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
        return ErrPasswordMismatch
    }
    return err
}
