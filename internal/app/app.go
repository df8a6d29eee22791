package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/campuskit/attendance-service/internal/config"
	"github.com/campuskit/attendance-service/internal/db"
	"github.com/campuskit/attendance-service/internal/utils"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg.RunMigrations {
		if err := db.MigrateUp(cfg.DBUrl); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		utils.Logger.Info("database migrations applied")
	}

	var (
		dbPool  *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		dbPool, err = newDBPool(ctx, cfg.DBUrl)
		cancel()
		if err == nil {
			utils.Logger.Infof("attendance-service connected to DB on attempt %d", i)
			break
		}

		utils.Logger.WithError(err).Warnf(
			"Failed DB connect on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)

		if i == maxRetries {
			return nil, fmt.Errorf("unable to connect after %d attempts: %w", maxRetries, err)
		}
		time.Sleep(backoff)
		backoff *= 2
	}

	redisOpts, err := redis.ParseURL(cfg.RedisUrl)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	{
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("unable to reach redis: %w", err)
		}
	}
	utils.Logger.Info("attendance-service connected to Redis")

	app := &App{
		Config: cfg,
		DB:     dbPool,
		Redis:  redisClient,
	}
	return app, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			utils.Logger.WithError(err).Warn("Error closing Redis client")
		}
	}
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("attendance-service DB connection closed.")
	}
}

func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return pgxpool.ConnectConfig(ctx, cfg)
}
