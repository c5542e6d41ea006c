package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/infra/config"
	"github.com/arazshah/callyou/internal/infra/database"
	kafkainfra "github.com/arazshah/callyou/internal/infra/kafka"
	"github.com/arazshah/callyou/internal/infra/logger"
	"github.com/arazshah/callyou/internal/infra/notification"
	redisinfra "github.com/arazshah/callyou/internal/infra/redis"
	"github.com/arazshah/callyou/internal/infra/security"
	"github.com/arazshah/callyou/internal/infra/telemetry"
	memoryrepo "github.com/arazshah/callyou/internal/repository/memory"
	postgresrepo "github.com/arazshah/callyou/internal/repository/postgres"
	redisrepo "github.com/arazshah/callyou/internal/repository/redis"
	"github.com/arazshah/callyou/internal/transport/http/middleware"
	"github.com/arazshah/callyou/internal/transport/http/routes"
	"github.com/arazshah/callyou/internal/usecase"
)

// Application owns the wired service graph and its lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	events port.EventPublisher
}

// New builds the application from configuration. It connects to Postgres,
// and optionally to Redis and Kafka; both fall back to local implementations
// when disabled so a single binary serves development and production.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tel, err := telemetry.Attach(cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	var (
		redisClient    *redisinfra.Client
		rateLimitStore port.RateLimitStore
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		rateLimitStore = redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix)
		log.Info("rate limiting backed by redis", zap.String("prefix", cfg.Redis.RateLimitPrefix))
	} else {
		rateLimitStore = memoryrepo.NewRateLimitStore()
		log.Info("rate limiting backed by in-process store; limits are per instance")
	}

	var eventPublisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(pool)
	notifier := notification.NewLogSender(log)

	authService := usecase.NewAuthService(
		usecase.AuthConfig{
			EmailTokenTTL: cfg.Verification.EmailTokenTTL,
			ResetTokenTTL: cfg.Verification.ResetTokenTTL,
		},
		repos.Users, repos.Profiles, repos.Activity, repos.Tx,
		tokenIssuer, security.DefaultPasswordValidator(),
		notifier, eventPublisher, log,
	)

	userService := usecase.NewUserService(repos.Users, repos.Profiles, repos.Activity, repos.Tx, eventPublisher, log)

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log).
		OnRejected(tel.RecordRateLimited)

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Telemetry:   tel,
		Database:    pool,
		Services: routes.ServiceSet{
			Auth:  authService,
			Users: userService,
		},
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		events: eventPublisher,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.events != nil {
			_ = a.events.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
