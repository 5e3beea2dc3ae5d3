package config

import "time"

// CacheConfig defines settings for the listing response cache.  When
// Enabled is false or no Redis client is available, caching is disabled.
// Methods lists the HTTP methods whose responses are cached.  TTL bounds
// how stale a listing can be if a purge is missed.  KeyStrategy selects
// which request parts form the key; Prefix namespaces every key so that a
// successful write can purge the whole listing cache at once.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "parkall:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    // a listing must never outlive a missed purge by more than a few minutes
    if cfg.TTL <= 0 || cfg.TTL > 5*time.Minute {
        cfg.TTL = 30 * time.Second
    }
    return cfg
}
