package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/infra/config"
	"github.com/tetardtek/superoauth/internal/infra/database"
	kafkainfra "github.com/tetardtek/superoauth/internal/infra/kafka"
	"github.com/tetardtek/superoauth/internal/infra/logger"
	"github.com/tetardtek/superoauth/internal/infra/oauth"
	redisinfra "github.com/tetardtek/superoauth/internal/infra/redis"
	"github.com/tetardtek/superoauth/internal/infra/security"
	"github.com/tetardtek/superoauth/internal/infra/telemetry"
	postgresrepo "github.com/tetardtek/superoauth/internal/repository/postgres"
	redisrepo "github.com/tetardtek/superoauth/internal/repository/redis"
	"github.com/tetardtek/superoauth/internal/transport/http/middleware"
	"github.com/tetardtek/superoauth/internal/transport/http/routes"
	"github.com/tetardtek/superoauth/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	telemetry *telemetry.Provider
	sessions  port.SessionRepository
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tele, err := telemetry.Attach(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenService, err := security.NewTokenService(security.TokenServiceConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	stateStore := redisrepo.NewStateRepository(redisClient.Client(), cfg.Redis.StatePrefix)
	oauthGateway := oauth.NewGateway(cfg.OAuth, stateStore, log)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.RateLimitPrefix)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	authService := usecase.NewAuthService(repos.Users, repos.Sessions, tokenService, eventPublisher, log)
	registrationService := usecase.NewRegistrationService(repos.Users, repos.Sessions, tokenService, eventPublisher, log)
	oauthService := usecase.NewOAuthService(repos.Users, repos.Sessions, tokenService, oauthGateway, eventPublisher, log)
	userService := usecase.NewUserService(repos.Users, repos.Sessions, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			OAuth:        oauthService,
			Users:        userService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		telemetry: tele,
		sessions:  repos.Sessions,
	}, nil
}

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

	go a.sweepExpiredSessions(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown telemetry", zap.Error(err))
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// sweepExpiredSessions periodically removes session rows whose expiry has
// passed. The refresh path already deletes dead state it touches; the sweep
// keeps the table small for sessions that are simply abandoned.
func (a *Application) sweepExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.sessions.DeleteExpired(ctx)
			if err != nil {
				a.logger.Warn("sweep expired sessions", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.logger.Info("expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}
