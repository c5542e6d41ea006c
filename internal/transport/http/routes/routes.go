package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arazshah/callyou/internal/infra/config"
	"github.com/arazshah/callyou/internal/infra/telemetry"
	"github.com/arazshah/callyou/internal/transport/http/handlers"
	"github.com/arazshah/callyou/internal/transport/http/middleware"
	"github.com/arazshah/callyou/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth  *usecase.AuthService
	Users *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Telemetry   *telemetry.Provider
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
	r.Use(middleware.RequestID())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.AccessLog(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if deps.Config.Telemetry.MetricsEnabled {
		httpMetrics := middleware.NewHTTPMetrics("callyou", prometheus.DefaultRegisterer)
		r.Use(httpMetrics.Handler())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	healthHandler := handlers.NewHealthHandler()
	if deps.Database != nil {
		healthHandler.WithReadinessCheck("database", deps.Database.Ping)
	}
	if deps.Cache != nil {
		healthHandler.WithReadinessCheck("redis", deps.Cache.HealthCheck)
	}

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	api := r.Group("/api/v1")

	if apiRate := buildRateRule(deps, "api", deps.Config.RateLimit.APIMaxAttempts); apiRate != nil {
		api.Use(apiRate)
	}

	authRate := buildRateRule(deps, "auth", deps.Config.RateLimit.AuthMaxAttempts)

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Users, deps.Telemetry)
	authHandler.RegisterRoutes(api.Group("/auth"), authRate)

	userHandler := handlers.NewUserHandler(deps.Services.Auth, deps.Services.Users)
	userHandler.RegisterRoutes(api.Group("/users"))

	return r
}

func buildRateRule(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})
}
