package bootstrap

import (
	"context"

	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/redirector/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/redirector/internal/config"
	"github.com/jonesrussell/north-cloud/redirector/internal/events"
)

// SetupEventPublisher creates an optional event publisher if Redis is enabled.
// Returns nil if Redis is disabled or unavailable.
func SetupEventPublisher(ctx context.Context, cfg *config.Config, log infralogger.Logger) *events.Publisher {
	if !cfg.Redis.Enabled {
		return nil
	}

	redisClient, err := infraredis.NewClient(ctx, infraredis.Config{
		Address:     cfg.Redis.Address,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PingTimeout: cfg.Redis.PingTimeout,
	})
	if err != nil {
		log.Warn("Redis not available, events disabled",
			infralogger.Error(err),
		)
		return nil
	}

	log.Info("Event publisher initialized",
		infralogger.String("redis_address", cfg.Redis.Address),
	)
	return events.NewPublisher(redisClient, cfg.Service.Name, log)
}
