package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/infra/config"
	"github.com/tetardtek/superoauth/internal/transport/http/handlers"
	"github.com/tetardtek/superoauth/internal/transport/http/middleware"
	"github.com/tetardtek/superoauth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	OAuth        *usecase.OAuthService
	Users        *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration)
		authHandler.RegisterRoutes(authGroup, handlers.AuthRouteMiddlewares{
			Register: buildRateLimit(deps, "auth_register_ip", limitOf(deps, func(rl config.RateLimitSettings) int { return rl.RegisterMaxAttempts })),
			Login:    buildRateLimit(deps, "auth_login_ip", limitOf(deps, func(rl config.RateLimitSettings) int { return rl.LoginMaxAttempts })),
			Refresh:  buildRateLimit(deps, "auth_refresh_ip", limitOf(deps, func(rl config.RateLimitSettings) int { return rl.RefreshMaxAttempts })),
		})

		if deps.Services.OAuth != nil {
			oauthGroup := api.Group("/oauth")
			oauthHandler := handlers.NewOAuthHandler(deps.Services.OAuth, deps.Services.Auth)
			startLimit := buildRateLimit(deps, "oauth_start_ip", limitOf(deps, func(rl config.RateLimitSettings) int { return rl.OAuthMaxAttempts }))
			oauthHandler.RegisterRoutes(oauthGroup, startLimit...)
		}

		userGroup := api.Group("/user")
		userGroup.Use(middleware.RequireAuth(deps.Services.Auth))
		userHandler := handlers.NewUserHandler(deps.Services.Users)
		userHandler.RegisterRoutes(userGroup)
	}

	return r
}

func limitOf(deps Dependencies, pick func(config.RateLimitSettings) int) int {
	if deps.Config == nil {
		return 0
	}
	return pick(deps.Config.RateLimit)
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
