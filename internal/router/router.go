package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/junkurera13/detour-sub001/internal/config"
	"github.com/junkurera13/detour-sub001/internal/handler"
	"github.com/junkurera13/detour-sub001/internal/middleware"
	"github.com/junkurera13/detour-sub001/internal/model"
)

// The rate limiter is attached per group rather than globally: on
// authenticated groups it runs after JWTAuth so the bucket key includes
// the user id, while public routes key on IP alone.

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check and the public invite
// validation endpoint. Validation may be called pre-authentication (the
// onboarding screen checks a code before an account exists), so it sits
// behind the rate limiter and the response cache rather than JWT.
func RegisterRoutes(e *echo.Echo, inv *handler.InviteHandler, rl echo.MiddlewareFunc, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/invites/validate", inv.Validate, rl, middleware.NewRedisCache(cacheCfg, rdb))
}

// RegisterAuth registers authentication routes. Unauthenticated
// operations live under /v1/auth and are rate-limited by IP; /v1/me and
// logout_all require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", rl)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret), rl)
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout_all", a.LogoutAll)
}

// RegisterCore registers the protected invite, match and typing
// endpoints. Every route requires a valid access token; administrative
// seeding routes additionally require the ADMIN role.
func RegisterCore(e *echo.Echo, inv *handler.InviteHandler, m *handler.MatchHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret), rl)
	auth.Use(middleware.RequireRole(model.RoleMember, model.RoleAdmin))

	auth.POST("/invites/redeem", inv.Redeem)

	auth.GET("/matches", m.List)
	auth.GET("/matches/:id", m.Get)
	auth.DELETE("/matches/:id", m.Unmatch)

	auth.PUT("/matches/:id/typing", m.SetTyping)
	auth.GET("/matches/:id/typing", m.GetTyping)
	auth.DELETE("/typing", m.ClearTyping)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret), rl)
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/invites", inv.Create)
	admin.DELETE("/invites/:id", inv.Deactivate)
	admin.POST("/matches", m.Create)
}
