package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/s-411/tracker-onboarding/internal/handler"    // import the handlers that implement business logic
	"github.com/s-411/tracker-onboarding/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: liveness plus a database readiness probe.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	// Load balancers and monitors hit these to decide whether the
	// instance stays in rotation.
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers authentication routes and their middleware.
// Unauthenticated operations live under /v1/auth, while protected
// endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Token issuance and exchange need no existing session.
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token; /refresh-access only issues a
	// new access token and leaves the refresh token in place.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT middleware: the handler accepts either
	// a bearer header (revoke all sessions) or a refresh_token body
	// (revoke one) and validates whichever is present itself.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)

	// Same handler at the top level so clients can call either
	// /v1/auth/logout or /v1/logout with a refresh token in the body.
	e.POST("/v1/logout", a.Logout)
}

// RegisterOnboarding registers the progressive onboarding surface.
// Everything except the two account-scoped endpoints is deliberately
// unauthenticated: the whole point of the flow is that a visitor fills
// in profile and first entry before any credentials exist.  The draft
// token in the X-Draft-Token header is the only key to a draft.
func RegisterOnboarding(e *echo.Echo, o *handler.OnboardingHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/onboarding")
	if rl != nil {
		// The unauthenticated surface is the abuse target, so the token
		// bucket sits on the whole group.
		g.Use(rl)
	}

	g.POST("/session", o.CreateSession)
	g.GET("/session", o.GetSession)
	// The route decision looks at the bearer token when one is present
	// but never rejects: a bad token just means "guest".
	g.GET("/route", o.Route, middleware.OptionalJWT(jwtSecret))
	g.PUT("/profile", o.SaveProfile)
	g.PUT("/entry", o.SaveEntry)
	g.PUT("/step", o.UpdateStep)
	g.POST("/account", o.CreateAccount)

	// Migration retry and plan selection happen after the account
	// exists, so they run behind real authentication.
	g.POST("/migrate", o.Migrate, middleware.JWTAuth(jwtSecret))
	g.POST("/plan", o.SelectPlan, middleware.JWTAuth(jwtSecret))
}
