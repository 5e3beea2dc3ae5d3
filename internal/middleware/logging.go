package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"
)

// HTTPRecorder receives one observation per served request.
type HTTPRecorder interface {
    RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// RequestLogger writes one structured line per request.  Server errors
// are logged at ERROR, client errors at WARN and everything else at INFO.
// rec may be nil.
func RequestLogger(logger *slog.Logger, rec HTTPRecorder) echo.MiddlewareFunc {
    if logger == nil {
        logger = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo's error handler write the response first
                c.Error(err)
            }
            elapsed := time.Since(start)

            req := c.Request()
            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }

            level := slog.LevelInfo
            switch {
            case status >= 500:
                level = slog.LevelError
            case status >= 400:
                level = slog.LevelWarn
            }
            attrs := []any{
                "method", req.Method,
                "path", req.URL.Path,
                "route", route,
                "status", status,
                "duration_ms", elapsed.Milliseconds(),
                "user_id", userKey(c),
                "remote_ip", c.RealIP(),
            }
            if err != nil {
                attrs = append(attrs, "error", err.Error())
            }
            logger.Log(req.Context(), level, "http request", attrs...)

            if rec != nil {
                rec.RecordHTTPRequest(req.Method, route, status, elapsed)
            }
            return nil
        }
    }
}
