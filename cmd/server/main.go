package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/junkurera13/detour-sub001/internal/config"
	"github.com/junkurera13/detour-sub001/internal/database"
	"github.com/junkurera13/detour-sub001/internal/handler"
	"github.com/junkurera13/detour-sub001/internal/middleware"
	"github.com/junkurera13/detour-sub001/internal/queue"
	"github.com/junkurera13/detour-sub001/internal/repository"
	"github.com/junkurera13/detour-sub001/internal/router"
	"github.com/junkurera13/detour-sub001/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and the validate-endpoint cache; a nil
	// client disables both rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	invites := repository.NewInviteCodeRepo(db)
	matches := repository.NewMatchRepo(db)
	typing := repository.NewTypingStatusRepo(db)

	inviteSvc := service.NewInviteService(invites)
	matchSvc := service.NewMatchService(matches, users)
	presenceSvc := service.NewPresenceService(typing, matches, cfg.TypingStaleness)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	inviteH := handler.NewInviteHandler(inviteSvc)
	matchH := handler.NewMatchHandler(matchSvc, presenceSvc)

	e := echo.New()

	// The limiter runs after JWTAuth on protected groups so buckets key
	// on the authenticated user; public routes fall back to IP keys.
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e, inviteH, rl, config.LoadCacheConfig(), rdb)
	router.RegisterAuth(e, authH, cfg.JWTSecret, rl)
	router.RegisterCore(e, inviteH, matchH, cfg.JWTSecret, rl)

	// Activity log consumer; runs its own reconnect loop.
	go queue.StartActivityConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
