package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/health"
	redisstorage "github.com/taoyao-code/gps-gateway/internal/storage/redis"
)

// NewRedisClient 创建 Redis 客户端；未启用时返回 nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// AddRedisChecker 添加 Redis 检查项
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client) {
	if redisClient != nil {
		aggregator.AddChecker(health.NewRedisChecker(redisClient))
	}
}
