package middleware

import (
    "bytes"
    "encoding/json"
    "errors"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parkall/internal/config"
    "github.com/iliyamo/parkall/internal/utils"
)

func TestJWTAuth(t *testing.T) {
    good, err := utils.NewAccessToken("secret", "user-1", "ana@example.com", 5)
    if err != nil {
        t.Fatal(err)
    }
    forged, _ := utils.NewAccessToken("other", "user-1", "ana@example.com", 5)

    tests := []struct {
        name   string
        header string
        want   int
    }{
        {"valid", "Bearer " + good.Token, http.StatusOK},
        {"missing", "", http.StatusUnauthorized},
        {"wrong scheme", "Basic abc", http.StatusUnauthorized},
        {"forged", "Bearer " + forged.Token, http.StatusUnauthorized},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            e := echo.New()
            req := httptest.NewRequest(http.MethodGet, "/", nil)
            if tt.header != "" {
                req.Header.Set(echo.HeaderAuthorization, tt.header)
            }
            rec := httptest.NewRecorder()
            c := e.NewContext(req, rec)

            var seen string
            h := JWTAuth("secret")(func(c echo.Context) error {
                seen = CurrentUserID(c)
                return c.NoContent(http.StatusOK)
            })
            if err := h(c); err != nil {
                t.Fatal(err)
            }
            if rec.Code != tt.want {
                t.Fatalf("status = %d, want %d", rec.Code, tt.want)
            }
            if tt.want == http.StatusOK && seen != "user-1" {
                t.Errorf("CurrentUserID = %q", seen)
            }
        })
    }
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
    mws := map[string]echo.MiddlewareFunc{
        "cache":      NewRedisCache(config.CacheConfig{Enabled: false}, nil),
        "invalidate": InvalidateOnWrite(config.CacheConfig{Enabled: true}, nil),
        "ratelimit":  NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
    }
    for name, mw := range mws {
        t.Run(name, func(t *testing.T) {
            e := echo.New()
            rec := httptest.NewRecorder()
            c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/parking/list", nil), rec)
            called := false
            err := mw(func(c echo.Context) error {
                called = true
                return c.String(http.StatusOK, "ok")
            })(c)
            if err != nil || !called || rec.Body.String() != "ok" {
                t.Errorf("called=%v err=%v body=%q", called, err, rec.Body.String())
            }
        })
    }
}

func TestCacheKeyFrom(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "parkall:cache", KeyStrategy: "route_query"}
    e := echo.New()
    key := func(target string) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/api/parking/reservados/:userId")
        return cacheKeyFrom(cfg, c)
    }

    a := key("/api/parking/reservados/u1")
    b := key("/api/parking/reservados/u2")
    if a == b {
        t.Error("different users must not share a cache entry")
    }
    if a != key("/api/parking/reservados/u1") {
        t.Error("key is not stable")
    }
    if !strings.HasPrefix(a, "parkall:cache:") {
        t.Errorf("key %q lacks prefix", a)
    }
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(200, hdr, []byte(`{"parkings":[]}`))
    if err != nil {
        t.Fatal(err)
    }
    status, got, body, ok := decodePayload(bs)
    if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"parkings":[]}` {
        t.Errorf("decoded = %d %v %q %v", status, got, body, ok)
    }
    for _, bad := range []string{"", "{", `{"b":"e30="}`} {
        if _, _, _, ok := decodePayload([]byte(bad)); ok {
            t.Errorf("payload %q accepted", bad)
        }
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/parking/reserve/s1", nil)
    req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/parking/reserve/:spotId")
    c.Set(ContextUserID, "u1")

    tests := map[string]string{
        "ip":         "rl:ip:10.0.0.7",
        "user_route": "rl:user:u1:route:POST /api/parking/reserve/:spotId",
        "":           "rl:ip:10.0.0.7:user:u1:route:POST /api/parking/reserve/:spotId",
    }
    for strategy, want := range tests {
        got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
        if got != want {
            t.Errorf("strategy %q: key = %q, want %q", strategy, got, want)
        }
    }
}

type fakeHTTPRecorder struct {
    method, route string
    status        int
}

func (f *fakeHTTPRecorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
    f.method, f.route, f.status = method, route, status
}

func TestRequestLogger(t *testing.T) {
    var buf bytes.Buffer
    logger := slog.New(slog.NewJSONHandler(&buf, nil))
    rec := &fakeHTTPRecorder{}

    e := echo.New()
    e.Use(RequestLogger(logger, rec))
    e.GET("/api/parking/publicados/:userId", func(c echo.Context) error {
        return echo.NewHTTPError(http.StatusNotFound, errors.New("nothing published"))
    })

    w := httptest.NewRecorder()
    e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/parking/publicados/u1", nil))

    if w.Code != http.StatusNotFound {
        t.Fatalf("status = %d", w.Code)
    }
    var entry map[string]any
    if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
        t.Fatalf("log is not JSON: %v\n%s", err, buf.String())
    }
    if entry["level"] != "WARN" || entry["route"] != "/api/parking/publicados/:userId" || entry["status"] != float64(404) {
        t.Errorf("entry = %v", entry)
    }
    if entry["user_id"] != "anon" {
        t.Errorf("user_id = %v", entry["user_id"])
    }
    if rec.status != 404 || rec.route != "/api/parking/publicados/:userId" || rec.method != http.MethodGet {
        t.Errorf("recorded = %+v", rec)
    }
}
