package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/prometheus/client_golang/prometheus"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/parkall/internal/config"
    "github.com/iliyamo/parkall/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/parkall/internal/metrics"
    "github.com/iliyamo/parkall/internal/middleware" // import middleware for JWT authentication and caching
)

// RegisterRoutes registers routes that do not require authentication:
// liveness, readiness, the Prometheus scrape endpoint and, when uploadsDir
// is set, the static image files written by the disk image store.  A nil
// pinger reports ready unconditionally.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, gatherer prometheus.Gatherer, uploadsDir string) {
    e.GET("/healthz", handler.Health)
    e.GET("/readyz", handler.Ready(db))
    if gatherer != nil {
        e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
    }
    if uploadsDir != "" {
        e.Static("/uploads", uploadsDir)
    }
}

// RegisterAuth registers the authentication routes under /api/auth.
// Register and login are public; /me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/api/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// ParkingOptions selects the middleware applied to /api/parking.
type ParkingOptions struct {
    // AuthRequired puts JWTAuth in front of every mutation.
    AuthRequired bool
    JWTSecret    string
    // Redis backs the listing cache; nil disables it.
    Redis *redis.Client
    Cache config.CacheConfig
}

// RegisterParking registers the marketplace routes under /api/parking.
// Reads go through the Redis listing cache and every successful mutation
// purges it.
func RegisterParking(e *echo.Echo, p *handler.ParkingHandler, opts ParkingOptions) {
    g := e.Group("/api/parking")

    read := middleware.NewRedisCache(opts.Cache, opts.Redis)
    g.GET("/list", p.List, read)
    g.GET("/reservados/:userId", p.ListReservedBy, read)
    g.GET("/publicados/:userId", p.ListPublishedBy, read)
    g.GET("/history/:spotId", p.History, read)

    write := []echo.MiddlewareFunc{middleware.InvalidateOnWrite(opts.Cache, opts.Redis)}
    if opts.AuthRequired {
        write = append([]echo.MiddlewareFunc{middleware.JWTAuth(opts.JWTSecret)}, write...)
    }
    g.POST("/create", p.Create, write...)
    g.POST("/reserve/:spotId", p.Reserve, write...)
    g.POST("/cancel-reservation/:spotId", p.CancelReservation, write...)
    g.PUT("/edit/:spotId", p.Edit, write...)
    g.DELETE("/delete/:spotId", p.Delete, write...)
}
