package middleware

// identity.go defines helper functions shared across middleware files.
// The rate limiter keys on a string identity, while the onboarding
// handlers need the numeric account ID that JWTAuth/OptionalJWT stored
// in the context. Both readers live here.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID extracts a string identity for rate-limit keys. It returns
// "anon" when no account is authenticated.
func userID(c echo.Context) string {
    if id, ok := AccountID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}

// AccountID converts the context's user_id to uint64. JWT numeric
// claims decode as float64; tokens minted elsewhere may carry strings.
// The second return reports whether an authenticated account is
// present at all.
func AccountID(c echo.Context) (uint64, bool) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, true
    case int:
        return uint64(t), true
    case int64:
        return uint64(t), true
    case float64:
        return uint64(t), true
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}
