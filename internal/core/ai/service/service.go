package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"recipe-aggregator/internal/core/ai/cache"
	"recipe-aggregator/internal/core/ai/provider"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

// MinResponseRunes 回應少於此字數視為失敗
const MinResponseRunes = 20

var (
	ErrUnavailable   = errors.New("generative service unavailable")
	ErrShortResponse = errors.New("generative response too short")
)

// Usage 呼叫者今日的使用量
type Usage struct {
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// QuotaExceededError 今日額度已用完，附帶重置時間
type QuotaExceededError struct {
	Used    int
	Limit   int
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily generative quota exceeded (%d/%d), resets at %s",
		e.Used, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// Unwrap 讓 HTTP 層以 errors.Is 對應到 429
func (e *QuotaExceededError) Unwrap() error {
	return common.ErrQuotaExceeded
}

// Result 生成結果
type Result struct {
	Content  string
	CacheHit bool
	Usage    Usage
}

// Service 包住生成服務的快取與每日額度
type Service struct {
	provider provider.Provider
	store    cache.Store
	metrics  *metrics.Metrics
	limit    int
	ttl      time.Duration
	loc      *time.Location
	now      func() time.Time
}

// NewService 創建 AI 服務；provider 為 nil 時所有生成請求回傳 ErrUnavailable
func NewService(cfg *config.Config, p provider.Provider, store cache.Store, m *metrics.Metrics) *Service {
	return &Service{
		provider: p,
		store:    store,
		metrics:  m,
		limit:    cfg.Quota.DailyLimit,
		ttl:      cfg.Cache.TTL,
		loc:      cfg.Quota.Location(),
		now:      time.Now,
	}
}

// Available 是否有可用的生成服務
func (s *Service) Available() bool {
	return s != nil && s.provider != nil
}

// Generate 依序檢查快取、額度，再呼叫生成服務；快取命中不扣額度
func (s *Service) Generate(ctx context.Context, caller, cacheKey string, req *provider.Request) (*Result, error) {
	if content, ok := s.cached(ctx, cacheKey); ok {
		usage, _ := s.Usage(ctx, caller)
		return &Result{Content: content, CacheHit: true, Usage: usage}, nil
	}

	usage, err := s.Usage(ctx, caller)
	if err != nil {
		common.LogWarn("無法讀取額度計數，視為未使用", zap.String("caller", caller), zap.Error(err))
	}
	if s.limit > 0 && usage.Used >= s.limit {
		s.metrics.QuotaRejected()
		common.LogInfo("AI 額度已用完",
			zap.String("caller", caller),
			zap.Int("used", usage.Used),
			zap.Int("limit", usage.Limit),
		)
		return nil, &QuotaExceededError{Used: usage.Used, Limit: usage.Limit, ResetAt: usage.ResetAt}
	}

	content, err := s.call(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	count, err := s.store.Increment(ctx, quotaKey(caller, now, s.loc), s.untilReset(now))
	if err != nil {
		common.LogWarn("額度計數失敗", zap.String("caller", caller), zap.Error(err))
		count = int64(usage.Used + 1)
	}
	usage.Used = int(count)

	s.remember(ctx, cacheKey, content)
	return &Result{Content: content, Usage: usage}, nil
}

// GenerateUnmetered 只走快取，不計額度
func (s *Service) GenerateUnmetered(ctx context.Context, caller, cacheKey string, req *provider.Request) (*Result, error) {
	if content, ok := s.cached(ctx, cacheKey); ok {
		return &Result{Content: content, CacheHit: true}, nil
	}

	content, err := s.call(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, cacheKey, content)
	return &Result{Content: content}, nil
}

// Usage 回傳今日使用量與重置時間
func (s *Service) Usage(ctx context.Context, caller string) (Usage, error) {
	now := s.now()
	usage := Usage{Limit: s.limit, ResetAt: s.resetAt(now)}

	count, err := s.store.Count(ctx, quotaKey(caller, now, s.loc))
	if err != nil {
		return usage, fmt.Errorf("failed to read quota: %w", err)
	}
	usage.Used = int(count)
	return usage, nil
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	content, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.String("key", key), zap.Error(err))
		}
		s.metrics.CacheMiss()
		return "", false
	}
	s.metrics.CacheHit()
	return content, true
}

func (s *Service) remember(ctx context.Context, key, content string) {
	if key == "" {
		return
	}
	if err := s.store.Set(ctx, key, content, s.ttl); err != nil {
		common.LogWarn("寫入快取失敗", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) call(ctx context.Context, caller string, req *provider.Request) (string, error) {
	if s.provider == nil {
		return "", ErrUnavailable
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	if err == nil && utf8.RuneCountInString(strings.TrimSpace(resp.Content)) < MinResponseRunes {
		err = ErrShortResponse
	}
	common.LogAICall(caller, time.Since(start), err)
	s.metrics.GenerativeCall(err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func quotaKey(caller string, now time.Time, loc *time.Location) string {
	return "quota:" + caller + ":" + now.In(loc).Format("2006-01-02")
}

func (s *Service) resetAt(now time.Time) time.Time {
	y, m, d := now.In(s.loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)
}

func (s *Service) untilReset(now time.Time) time.Duration {
	return s.resetAt(now).Sub(now)
}
