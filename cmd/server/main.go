package main // Entry point package

import (
	"context" // sweep deadlines
	"log"     // Logging library
	"time"    // Maintenance loop cadence

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/s-411/tracker-onboarding/internal/config"     // Internal config loader
	"github.com/s-411/tracker-onboarding/internal/database"   // MySQL connector
	"github.com/s-411/tracker-onboarding/internal/flow"       // Onboarding flow controller and coordinator
	"github.com/s-411/tracker-onboarding/internal/handler"    // HTTP handlers
	"github.com/s-411/tracker-onboarding/internal/middleware" // Rate limiting
	"github.com/s-411/tracker-onboarding/internal/mirror"     // Draft mirror store
	"github.com/s-411/tracker-onboarding/internal/queue"      // Completion event consumer
	"github.com/s-411/tracker-onboarding/internal/repository" // DB repositories
	"github.com/s-411/tracker-onboarding/internal/router"     // Route registration
)

func main() {
	// .env is a local convenience; in real deployments the variables
	// come from the environment and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis backs the draft mirror and the rate limiter. A nil client
	// disables both; the flow keeps working server-side.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: mirror and rate limiting disabled")
	}

	mirrorCfg := config.LoadMirrorConfig()
	var store mirror.Store
	if rdb != nil && mirrorCfg.Enabled {
		store = mirror.NewRedisStore(rdb, mirrorCfg.KeyTTL)
	}

	drafts := repository.NewDraftRepo(db, time.Duration(cfg.DraftTTLMin)*time.Minute)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	ctrl := flow.NewController(drafts)
	coord := flow.NewCoordinator(drafts)

	var rl echo.MiddlewareFunc
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled && rdb != nil {
		rl = middleware.NewTokenBucket(rlCfg, rdb)
	}

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterOnboarding(e,
		handler.NewOnboardingHandler(cfg, mirrorCfg, ctrl, coord, users, tokens, store),
		cfg.JWTSecret, rl)

	// Expired drafts and refresh tokens accumulate; sweep them on a
	// fixed cadence so abandoned sessions do not pile up in MySQL.
	go maintenanceLoop(drafts, tokens, time.Duration(cfg.DraftGCIntervalMin)*time.Minute)

	// The completion consumer drains onboarding.completed events for
	// downstream bookkeeping. It reconnects on its own; a missing broker
	// only costs the event log.
	go func() {
		if err := queue.StartCompletedConsumer(); err != nil {
			log.Printf("completion consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// maintenanceLoop deletes expired drafts and refresh tokens every
// interval. Completed drafts are kept for audit and skipped by the
// draft sweep.
func maintenanceLoop(drafts *repository.DraftRepo, tokens *repository.TokenRepo, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if n, err := drafts.DeleteExpired(ctx); err != nil {
			log.Printf("draft sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("draft sweep removed %d expired drafts", n)
		}
		if _, err := tokens.DeleteExpired(ctx); err != nil {
			log.Printf("refresh token sweep failed: %v", err)
		}
		cancel()
	}
}
