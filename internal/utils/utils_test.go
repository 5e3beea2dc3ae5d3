package utils

import (
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestAccessToken_RoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", "8d0f6a1e-8a57-4c39-9d1f-4a0a4c6f3b11", "ana@example.com", 60)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    if until := time.Until(tok.Exp); until < 59*time.Minute || until > 61*time.Minute {
        t.Errorf("Exp in %v, want ~60m", until)
    }

    cl, err := ParseAccessToken("s3cret", tok.Token)
    if err != nil {
        t.Fatalf("ParseAccessToken: %v", err)
    }
    if cl.UserID != "8d0f6a1e-8a57-4c39-9d1f-4a0a4c6f3b11" || cl.Email != "ana@example.com" {
        t.Errorf("claims = %+v", cl)
    }
}

func TestParseAccessToken_Rejects(t *testing.T) {
    good, _ := NewAccessToken("s3cret", "u1", "a@b.c", 5)
    expired, _ := NewAccessToken("s3cret", "u1", "a@b.c", -5)
    noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "exp": time.Now().Add(time.Hour).Unix(),
    }).SignedString([]byte("s3cret"))
    noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("s3cret"))

    tests := map[string]struct{ secret, raw string }{
        "wrong secret":  {"other", good.Token},
        "expired":       {"s3cret", expired.Token},
        "missing sub":   {"s3cret", noSub},
        "missing exp":   {"s3cret", noExp},
        "garbage":       {"s3cret", "not.a.jwt"},
    }
    for name, tt := range tests {
        t.Run(name, func(t *testing.T) {
            if _, err := ParseAccessToken(tt.secret, tt.raw); !errors.Is(err, ErrInvalidToken) {
                t.Errorf("err = %v, want ErrInvalidToken", err)
            }
        })
    }
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("hunter22", 4)
    if err != nil {
        t.Fatal(err)
    }
    if err := VerifyPassword(hash, "hunter22"); err != nil {
        t.Errorf("correct password rejected: %v", err)
    }
    if err := VerifyPassword(hash, "hunter23"); !errors.Is(err, ErrPasswordMismatch) {
        t.Errorf("wrong password: err = %v, want ErrPasswordMismatch", err)
    }
    if err := VerifyPassword("not-a-hash", "hunter22"); err == nil || errors.Is(err, ErrPasswordMismatch) {
        t.Errorf("corrupt hash: err = %v", err)
    }
    if _, err := HashPassword(strings.Repeat("x", 73), 4); !errors.Is(err, ErrPasswordTooLong) {
        t.Errorf("long password: err = %v, want ErrPasswordTooLong", err)
    }
}
