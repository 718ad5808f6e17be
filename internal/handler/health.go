package handler // declare the package name; contains HTTP handlers

import (
    "context"          // bounded ping timeout
    "database/sql"      // DB handle for the readiness probe
    "net/http"          // net/http provides status codes and response helpers
    "time"              // ping deadline

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple liveness endpoint used by load balancers and
// monitoring systems to verify that the process is up.  It returns a
// plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports whether the service can reach its database.  Drafts and
// accounts both live in MySQL, so a failed ping means no onboarding
// request can succeed and the instance should be pulled from rotation.
func Ready(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "error": "database unreachable"})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
    }
}
