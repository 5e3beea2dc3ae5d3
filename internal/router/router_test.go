package router

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"

    "github.com/iliyamo/parkall/internal/auth"
    "github.com/iliyamo/parkall/internal/handler"
    "github.com/iliyamo/parkall/internal/metrics"
    "github.com/iliyamo/parkall/internal/model"
    "github.com/iliyamo/parkall/internal/parking"
    "github.com/iliyamo/parkall/internal/repository"
    "github.com/iliyamo/parkall/internal/utils"
)

const secret = "test-secret"

func newServer(t *testing.T, authRequired bool) (*echo.Echo, *repository.MemoryStore, string) {
    t.Helper()
    store := repository.NewMemoryStore()
    reg := prometheus.NewRegistry()
    collector := metrics.NewCollector(reg)
    uploads := t.TempDir()

    svc := parking.NewService(parking.Deps{
        Spots:   store.Spots(),
        Users:   store.Users(),
        History: store.Reservations(),
        Metrics: collector,
    })
    authSvc := &auth.Service{
        Identities: auth.NewLocalProvider(store.Credentials(), 4),
        Profiles:   store.Users(),
        Secret:     secret,
        TTLMin:     5,
    }

    e := echo.New()
    RegisterRoutes(e, nil, reg, uploads)
    RegisterAuth(e, handler.NewAuthHandler(authSvc, nil, true), secret)
    RegisterParking(e, handler.NewParkingHandler(svc, nil, 1<<20, nil, true), ParkingOptions{
        AuthRequired: authRequired,
        JWTSecret:    secret,
    })
    return e, store, uploads
}

func serve(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func jsonDecode(rec *httptest.ResponseRecorder, v any) error {
    return json.Unmarshal(rec.Body.Bytes(), v)
}

func TestPublicRoutes(t *testing.T) {
    e, _, uploads := newServer(t, true)
    if err := os.WriteFile(filepath.Join(uploads, "1-a.png"), []byte("png"), 0o644); err != nil {
        t.Fatal(err)
    }

    tests := []struct {
        path   string
        status int
        body   string
    }{
        {"/healthz", http.StatusOK, "ok"},
        {"/readyz", http.StatusOK, "ready"},
        {"/metrics", http.StatusOK, "parkall_spots_published_total"},
        {"/uploads/1-a.png", http.StatusOK, "png"},
        {"/api/parking/list", http.StatusOK, `"parkings":[]`},
    }
    for _, tt := range tests {
        rec := serve(e, http.MethodGet, tt.path, "", "")
        if rec.Code != tt.status || !strings.Contains(rec.Body.String(), tt.body) {
            t.Errorf("GET %s = %d %q", tt.path, rec.Code, rec.Body.String())
        }
    }
}

func TestMutationsRequireToken(t *testing.T) {
    e, store, _ := newServer(t, true)
    u := &model.User{Name: "Ana", Email: "ana@example.com"}
    if err := store.Users().Create(t.Context(), u); err != nil {
        t.Fatal(err)
    }

    rec := serve(e, http.MethodPost, "/api/parking/reserve/"+u.ID, `{"userId":"`+u.ID+`"}`, "")
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("without token: status = %d, want 401", rec.Code)
    }

    tok, err := utils.NewAccessToken(secret, u.ID, u.Email, 5)
    if err != nil {
        t.Fatal(err)
    }
    rec = serve(e, http.MethodDelete, "/api/parking/delete/"+u.ID, "", tok.Token)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("with token: status = %d, want 404 (%s)", rec.Code, rec.Body)
    }
}

func TestRegisterLoginMe(t *testing.T) {
    e, _, _ := newServer(t, true)

    rec := serve(e, http.MethodPost, "/api/auth/register",
        `{"nombre":"Ana","email":"ana@example.com","password":"secret1"}`, "")
    if rec.Code != http.StatusCreated {
        t.Fatalf("register: %d %s", rec.Code, rec.Body)
    }
    rec = serve(e, http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"secret1"}`, "")
    if rec.Code != http.StatusOK {
        t.Fatalf("login: %d %s", rec.Code, rec.Body)
    }
    var out struct {
        Token string `json:"token"`
    }
    if err := jsonDecode(rec, &out); err != nil || out.Token == "" {
        t.Fatalf("login body %s: %v", rec.Body, err)
    }

    if rec := serve(e, http.MethodGet, "/api/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
        t.Errorf("me without token: %d", rec.Code)
    }
    rec = serve(e, http.MethodGet, "/api/auth/me", "", out.Token)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"nombre":"Ana"`) {
        t.Errorf("me: %d %s", rec.Code, rec.Body)
    }
}

func TestAuthOptional(t *testing.T) {
    e, _, _ := newServer(t, false)
    rec := serve(e, http.MethodDelete, "/api/parking/delete/1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed", "", "")
    if rec.Code != http.StatusNotFound {
        t.Fatalf("status = %d, want 404", rec.Code)
    }
}
