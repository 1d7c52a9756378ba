package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/cosmas28/business-connect-v2/internal/adapter/cache"
	"github.com/cosmas28/business-connect-v2/internal/bootstrap"
	"github.com/cosmas28/business-connect-v2/internal/config"
	httptransport "github.com/cosmas28/business-connect-v2/internal/http"
	"github.com/cosmas28/business-connect-v2/internal/http/handler"
	httpmiddleware "github.com/cosmas28/business-connect-v2/internal/http/middleware"
	apimiddleware "github.com/cosmas28/business-connect-v2/internal/middleware"
	"github.com/cosmas28/business-connect-v2/internal/repository"
	"github.com/cosmas28/business-connect-v2/internal/server"
	"github.com/cosmas28/business-connect-v2/internal/service"
	"github.com/cosmas28/business-connect-v2/internal/telemetry"
	"github.com/cosmas28/business-connect-v2/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newRedisClient,
			newRevocationRegistry,
			newTokenIssuer,
			newTokenVerifier,
			newRateLimiter,
			service.NewAuthService,
			newAuthHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureAdmin, bootstrap.SweepRevokedTokens, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newRevocationRegistry(pool *pgxpool.Pool, client redis.UniversalClient) repository.RevocationRegistry {
	return cacheadapter.NewRedisRevocationCache(client, repository.NewPostgresRevocationRepo(pool))
}

func newTokenIssuer(cfg config.Config) *token.Issuer {
	return token.NewIssuer([]byte(cfg.SigningSecret), cfg.TokenIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.ResetTokenTTL)
}

func newTokenVerifier(cfg config.Config, registry repository.RevocationRegistry) *token.Verifier {
	return token.NewVerifier([]byte(cfg.SigningSecret), cfg.TokenIssuer, registry)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newAuthHandler(authService *service.AuthService, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(authService, logger)
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{AuthService: authService}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
