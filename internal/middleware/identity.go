package middleware

// identity.go holds the helpers that read the authenticated user from the
// echo context.  JWTAuth stores the verified subject under ContextUserID.

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id"
    ContextEmail  = "email"
)

// CurrentUserID returns the verified user ID, or "" when the request is
// not authenticated.
func CurrentUserID(c echo.Context) string {
    if v, ok := c.Get(ContextUserID).(string); ok {
        return v
    }
    return ""
}

// userKey returns the identifier used in rate-limit keys and logs.
func userKey(c echo.Context) string {
    if id := CurrentUserID(c); id != "" {
        return id
    }
    return "anon"
}
