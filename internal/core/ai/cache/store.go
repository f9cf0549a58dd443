package cache

import (
	"context"
	"time"
)

// Store 快取與計數器能力；核心邏輯不關心後端是記憶體還是 Redis
type Store interface {
	// Get 取得未過期的值，不存在時回傳 common.ErrCacheMiss
	Get(ctx context.Context, key string) (string, error)
	// Set 寫入並覆蓋舊值
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Increment 計數加一；第一次建立時套用 ttl
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Count 讀取計數，不存在時為 0
	Count(ctx context.Context, key string) (int64, error)
	Close() error
}
