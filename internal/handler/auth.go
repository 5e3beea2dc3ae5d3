package handler

import (
    "context"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parkall/internal/auth"
    "github.com/iliyamo/parkall/internal/middleware"
    "github.com/iliyamo/parkall/internal/model"
)

// AuthService is implemented by *auth.Service.
type AuthService interface {
    Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
    Login(ctx context.Context, email, password string) (*auth.Session, error)
    Me(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Svc  AuthService
    errs errorWriter
}

func NewAuthHandler(svc AuthService, logger *slog.Logger, showErrorDetail bool) *AuthHandler {
    return &AuthHandler{Svc: svc, errs: errorWriter{ShowDetail: showErrorDetail, Logger: logger}}
}

type registerReq struct {
    Nombre   string `json:"nombre"`
    Email    string `json:"email"`
    Password string `json:"password"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// Register creates the identity and profile: 201 {message, user}.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Svc.Register(ctx, auth.RegisterInput{Name: req.Nombre, Email: req.Email, Password: req.Password})
    if err != nil {
        return h.errs.write(c, "register", err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "message": "user registered",
        "user":    toUserJSON(u),
    })
}

// Login verifies credentials: 200 {message, token, user}.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sess, err := h.Svc.Login(ctx, req.Email, req.Password)
    if err != nil {
        return h.errs.write(c, "login", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":   "login successful",
        "token":     sess.Token,
        "expiresAt": sess.ExpiresAt,
        "user":      toUserJSON(sess.User),
    })
}

// Me returns the authenticated user.  It must run behind JWTAuth.
func (h *AuthHandler) Me(c echo.Context) error {
    uid := middleware.CurrentUserID(c)
    if uid == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Svc.Me(ctx, uid)
    if err != nil {
        return h.errs.write(c, "me", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"user": toUserJSON(u)})
}
