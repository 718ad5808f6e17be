package config

import (
    "os"
    "time"
)

// MirrorConfig defines settings for the draft mirror: the namespaced
// key/value cache that stands in for the visitor's device storage.
// Enabled=false (or a missing Redis client) degrades every mirror
// operation to a no-op, which the flow is required to tolerate.
// Prefix namespaces mirror keys inside the shared Redis; KeyTTL bounds
// how long abandoned mirror keys linger.
type MirrorConfig struct {
    Enabled bool
    Prefix  string
    KeyTTL  time.Duration
}

// LoadMirrorConfig reads environment variables to build a MirrorConfig.
// Defaults are used when variables are not set.
func LoadMirrorConfig() MirrorConfig {
    return MirrorConfig{
        Enabled: getenv("MIRROR_ENABLED", "true") == "true",
        Prefix:  getenv("MIRROR_PREFIX", "onb"),
        KeyTTL:  parseDur(getenv("MIRROR_KEY_TTL", "24h")),
    }
}

// Helper functions shared with redis.go and ratelimit.go.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
