package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"recipe-aggregator/internal/core/ai/service"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/source"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

// Persister 外部食譜的持久化能力
type Persister interface {
	MaybePersist(ctx context.Context, r recipe.Recipe) (int64, error)
}

// Orchestrator 依序查詢本地、外部目錄與 AI 來源並合併排序
type Orchestrator struct {
	local      source.Adapter
	catalog    source.Adapter
	generative source.Adapter
	persister  Persister
	metrics    *metrics.Metrics

	threshold    int
	defaultLimit int
	maxLimit     int
	autoPersist  bool
}

// NewOrchestrator 創建聚合器；catalog、generative、persister 可為 nil
func NewOrchestrator(cfg config.AggregatorConfig, local, catalog, generative source.Adapter, persister Persister, m *metrics.Metrics) *Orchestrator {
	o := &Orchestrator{
		local:        local,
		catalog:      catalog,
		persister:    persister,
		metrics:      m,
		threshold:    cfg.SufficiencyThreshold,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		autoPersist:  cfg.AutoPersist && persister != nil,
	}
	if cfg.EnableGenerative {
		o.generative = generative
	}
	if o.threshold <= 0 {
		o.threshold = 2
	}
	if o.defaultLimit <= 0 {
		o.defaultLimit = 20
	}
	if o.maxLimit < o.defaultLimit {
		o.maxLimit = o.defaultLimit
	}
	return o
}

// Search 執行完整的聚合流程
// 只有輸入不合法時回傳錯誤，上游失敗一律降級為較少的結果
func (o *Orchestrator) Search(ctx context.Context, q recipe.Query) (*recipe.SearchResult, error) {
	q = q.Normalize()
	q.Limit = o.clampLimit(q.Limit)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx = source.WithCaller(ctx, q.Caller)

	start := time.Now()
	acc := newAccumulator()

	acc.add(o.query(ctx, o.local, q))

	if o.catalog != nil && (acc.len() < o.threshold || q.Supplement) {
		acc.add(o.query(ctx, o.catalog, q))
	}

	if o.generative != nil && !q.SkipGenerated && acc.len() < o.threshold {
		acc.add(o.query(ctx, o.generative, q))
	}

	ranked := recipe.Rank(acc.recipes, q)
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	if o.autoPersist {
		o.persist(ctx, ranked)
	}

	result := &recipe.SearchResult{
		Recipes: ranked,
		Filters: q.Filters(),
		Total:   len(ranked),
		Source:  sourceTag(ranked),
	}

	common.LogInfo("聚合查詢完成",
		zap.String("caller", q.Caller),
		zap.String("query", q.Text),
		zap.Strings("ingredients", q.Ingredients),
		zap.Int("total", result.Total),
		zap.String("source", result.Source),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// Lookup 數字 id 查本地資料庫，themealdb-<id> 查外部目錄
func (o *Orchestrator) Lookup(ctx context.Context, id string) (*recipe.Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", recipe.ErrInvalidQuery)
	}

	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		r, err := o.local.LookupByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, recipe.ErrNotFound
		}
		return r, nil
	}

	if o.catalog == nil || !strings.HasPrefix(id, recipe.CatalogExternalID("")) {
		return nil, recipe.ErrNotFound
	}
	r, err := o.catalog.LookupByID(ctx, id)
	if err != nil {
		common.LogUpstreamFailure(string(o.catalog.Kind()), "lookup", err, zap.String("id", id))
		return nil, recipe.ErrNotFound
	}
	if r == nil {
		return nil, recipe.ErrNotFound
	}
	if o.autoPersist {
		found := []recipe.Recipe{*r}
		o.persist(ctx, found)
		r = &found[0]
	}
	return r, nil
}

func (o *Orchestrator) clampLimit(limit int) int {
	if limit <= 0 {
		return o.defaultLimit
	}
	if limit > o.maxLimit {
		return o.maxLimit
	}
	return limit
}

// query 依查詢條件選擇來源操作；錯誤只記錄不回傳
func (o *Orchestrator) query(ctx context.Context, a source.Adapter, q recipe.Query) []recipe.Recipe {
	var (
		results   []recipe.Recipe
		err       error
		operation string
	)

	switch {
	case q.Text != "" && len(q.Ingredients) > 0:
		operation = "text_ingredients"
		results, err = a.SearchByTextAndIngredients(ctx, q.Text, q.Ingredients, q.Limit)
	case q.Text != "":
		operation = "text"
		results, err = a.SearchByText(ctx, q.Text, q.Limit)
	case len(q.Ingredients) > 0:
		operation = "ingredients"
		results, err = a.SearchByIngredients(ctx, q.Ingredients, q.Limit)
	case q.Category != "":
		operation = "category"
		results, err = a.SearchByCategory(ctx, q.Category, q.Limit)
	case q.Origin != "":
		operation = "origin"
		results, err = a.SearchByOrigin(ctx, q.Origin, q.Limit)
	}

	o.metrics.ObserveAdapter(string(a.Kind()), operation, len(results), err)

	if err != nil {
		var quotaErr *service.QuotaExceededError
		if errors.As(err, &quotaErr) {
			common.LogWarn("AI 額度已用完，略過生成來源",
				zap.String("caller", q.Caller),
				zap.Int("used", quotaErr.Used),
				zap.Int("limit", quotaErr.Limit),
			)
		} else {
			common.LogUpstreamFailure(string(a.Kind()), operation, err, zap.String("caller", q.Caller))
		}
		return nil
	}
	return results
}

// persist 寫入外部來源的結果並回填 id；失敗只記錄
func (o *Orchestrator) persist(ctx context.Context, recipes []recipe.Recipe) {
	for i := range recipes {
		r := recipes[i]
		if r.ID != 0 || !r.Source.External() {
			continue
		}
		id, err := o.persister.MaybePersist(ctx, r)
		if err != nil {
			common.LogError("自動儲存外部食譜失敗",
				zap.String("source", string(r.Source)),
				zap.String("external_id", r.ExternalID),
				zap.Error(err),
			)
			continue
		}
		recipes[i].ID = id
	}
}

// sourceTag 依實際有貢獻的來源標記回應
func sourceTag(recipes []recipe.Recipe) string {
	local, external := false, false
	for _, r := range recipes {
		if r.Source == recipe.SourceLocal {
			local = true
		} else {
			external = true
		}
	}
	switch {
	case local && external:
		return "mixed"
	case external:
		return "catalog"
	default:
		return "local"
	}
}

// accumulator 依 DedupKey 去重，先加入者保留
type accumulator struct {
	seen    map[string]struct{}
	recipes []recipe.Recipe
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]struct{})}
}

func (a *accumulator) add(recipes []recipe.Recipe) {
	for _, r := range recipes {
		key := r.DedupKey()
		if _, ok := a.seen[key]; ok {
			continue
		}
		a.seen[key] = struct{}{}
		a.recipes = append(a.recipes, r)
	}
}

func (a *accumulator) len() int {
	return len(a.recipes)
}
