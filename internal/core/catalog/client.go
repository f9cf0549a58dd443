package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const breakerName = "themealdb"

// MealStub filter 端點只回傳 id、名稱與縮圖
type MealStub struct {
	ID    string `json:"idMeal"`
	Name  string `json:"strMeal"`
	Thumb string `json:"strMealThumb"`
}

// Category 目錄分類
type Category struct {
	ID          string `json:"idCategory"`
	Name        string `json:"strCategory"`
	Thumb       string `json:"strCategoryThumb"`
	Description string `json:"strCategoryDescription"`
}

// Client TheMealDB 唯讀客戶端；每次呼叫都有逾時並經過斷路器
type Client struct {
	http        *resty.Client
	breaker     *gobreaker.CircuitBreaker
	timeout     time.Duration
	concurrency int
}

// NewClient 創建目錄客戶端
func NewClient(cfg config.CatalogConfig, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			common.LogWarn("斷路器狀態變更",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.BreakerState(name, int(to))
		},
	})

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		breaker:     breaker,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// SearchByName 依名稱搜尋完整食譜
func (c *Client) SearchByName(ctx context.Context, name string) ([]recipe.CatalogMeal, error) {
	var out struct {
		Meals []recipe.CatalogMeal `json:"meals"`
	}
	if err := c.get(ctx, "/search.php", map[string]string{"s": name}, &out); err != nil {
		return nil, err
	}
	return out.Meals, nil
}

// FilterByIngredient 依主要食材篩選
func (c *Client) FilterByIngredient(ctx context.Context, ingredient string) ([]MealStub, error) {
	return c.filter(ctx, "i", strings.ReplaceAll(strings.TrimSpace(ingredient), " ", "_"))
}

// FilterByCategory 依分類篩選
func (c *Client) FilterByCategory(ctx context.Context, category string) ([]MealStub, error) {
	return c.filter(ctx, "c", category)
}

// FilterByArea 依地區篩選
func (c *Client) FilterByArea(ctx context.Context, area string) ([]MealStub, error) {
	return c.filter(ctx, "a", area)
}

func (c *Client) filter(ctx context.Context, param, value string) ([]MealStub, error) {
	var out struct {
		Meals []MealStub `json:"meals"`
	}
	if err := c.get(ctx, "/filter.php", map[string]string{param: value}, &out); err != nil {
		return nil, err
	}
	return out.Meals, nil
}

// LookupByID 依 idMeal 查詢，不存在時回傳 nil
func (c *Client) LookupByID(ctx context.Context, id string) (*recipe.CatalogMeal, error) {
	var out struct {
		Meals []recipe.CatalogMeal `json:"meals"`
	}
	if err := c.get(ctx, "/lookup.php", map[string]string{"i": id}, &out); err != nil {
		return nil, err
	}
	if len(out.Meals) == 0 {
		return nil, nil
	}
	return &out.Meals[0], nil
}

// LookupMany 以有限並行度展開 stub，失敗或不存在的項目略過，保留輸入順序
func (c *Client) LookupMany(ctx context.Context, ids []string) []recipe.CatalogMeal {
	results := make([]*recipe.CatalogMeal, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			meal, err := c.LookupByID(gctx, id)
			if err != nil {
				common.LogUpstreamFailure("catalog", "lookup", err, zap.String("id", id))
				return nil
			}
			results[i] = meal
			return nil
		})
	}
	_ = g.Wait()

	meals := make([]recipe.CatalogMeal, 0, len(ids))
	for _, m := range results {
		if m != nil {
			meals = append(meals, *m)
		}
	}
	return meals
}

// ListCategories 列出所有分類
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.get(ctx, "/categories.php", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// get 發出呼叫；呼叫端取消不會中斷已送出的請求，只受逾時限制
func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		resp, err := c.http.R().
			SetContext(reqCtx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("catalog request %s failed: %w", path, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("catalog request %s returned status %d", path, resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, fmt.Errorf("%w: catalog response for %s: %v", recipe.ErrMalformedRecord, path, err)
		}
		return nil, nil
	})
	return err
}
