package config

import (
    "net/http"
    "time"
)

// Bucket describes one token bucket: Capacity tokens, refilled by
// RefillTokens every RefillInterval.
type Bucket struct {
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
}

func (b *Bucket) clamp() {
    if b.Capacity < 1 {
        b.Capacity = 1
    }
    if b.RefillTokens < 1 {
        b.RefillTokens = 1
    }
    if b.RefillInterval <= 0 {
        b.RefillInterval = time.Second
    }
}

// RateLimitConfig configures the Redis rate limiter.  Reads (GET, HEAD)
// and writes draw from separate buckets so that reservation attempts can
// be throttled harder than browsing.
type RateLimitConfig struct {
    Enabled     bool
    Read        Bucket
    Write       Bucket
    TTL         time.Duration
    KeyStrategy string
    Prefix      string
    Debug       bool
}

// BucketFor returns the bucket class ("r" or "w") and limits for method.
func (c RateLimitConfig) BucketFor(method string) (string, Bucket) {
    switch method {
    case http.MethodGet, http.MethodHead, http.MethodOptions:
        return "r", c.Read
    default:
        return "w", c.Write
    }
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables and clamps the
// result to usable values.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Read: Bucket{
            Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
            RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
            RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        },
        Write: Bucket{
            Capacity:       envInt("RATE_LIMIT_WRITE_CAPACITY", 10),
            RefillTokens:   envInt("RATE_LIMIT_WRITE_REFILL_TOKENS", 1),
            RefillInterval: envDur("RATE_LIMIT_WRITE_REFILL_INTERVAL", 3*time.Second),
        },
        TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:      envStr("RATE_LIMIT_PREFIX", "parkall:rl"),
        Debug:       envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.Read.clamp()
    cfg.Write.clamp()

    // an idle key must survive long enough to refill completely
    slowest := max(cfg.Read.RefillInterval, cfg.Write.RefillInterval)
    if minTTL := 5 * slowest; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg
}
