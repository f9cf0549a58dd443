package cache

import (
	"context"

	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

// New 依設定選擇後端；Redis 連不上時退回記憶體快取
func New(ctx context.Context, cfg *config.Config) Store {
	if cfg.Cache.Backend == "redis" {
		store, err := NewRedisStore(ctx, cfg.Redis, cfg.Cache)
		if err == nil {
			common.LogInfo("快取管理員已初始化", zap.String("backend", "redis"), zap.String("addr", cfg.Redis.Addr))
			return store
		}
		common.LogWarn("Redis 無法連線，改用記憶體快取", zap.Error(err))
	}
	return NewMemoryStore(cfg.Cache)
}
