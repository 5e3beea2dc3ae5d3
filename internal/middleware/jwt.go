package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/parkall/internal/utils" // token verification
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and email into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers
// read the verified user with CurrentUserID.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            raw, ok := strings.CutPrefix(auth, "Bearer ")
            if !ok || strings.TrimSpace(raw) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "missing bearer token"})
            }

            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
            }

            c.Set(ContextUserID, claims.UserID)
            c.Set(ContextEmail, claims.Email)
            return next(c)
        }
    }
}
