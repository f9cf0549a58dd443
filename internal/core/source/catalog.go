package source

import (
	"context"
	"sort"
	"strings"
	"time"

	"recipe-aggregator/internal/core/catalog"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/translate"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 每次查詢同時送往目錄的請求上限
const maxFanout = 3

// CatalogAPI 目錄客戶端能力
type CatalogAPI interface {
	SearchByName(ctx context.Context, name string) ([]recipe.CatalogMeal, error)
	FilterByIngredient(ctx context.Context, ingredient string) ([]catalog.MealStub, error)
	FilterByCategory(ctx context.Context, category string) ([]catalog.MealStub, error)
	FilterByArea(ctx context.Context, area string) ([]catalog.MealStub, error)
	LookupByID(ctx context.Context, id string) (*recipe.CatalogMeal, error)
	LookupMany(ctx context.Context, ids []string) []recipe.CatalogMeal
	ListCategories(ctx context.Context) ([]catalog.Category, error)
}

// CatalogSource 外部目錄來源；上游失敗時回傳空結果並記錄日誌
type CatalogSource struct {
	client     CatalogAPI
	translator *translate.Translator
	now        func() time.Time
}

// NewCatalogSource 創建目錄來源
func NewCatalogSource(client CatalogAPI, translator *translate.Translator) *CatalogSource {
	return &CatalogSource{client: client, translator: translator, now: time.Now}
}

func (s *CatalogSource) Kind() recipe.Source { return recipe.SourceCatalog }

// SearchByText 搜尋詞先轉成英文候選詞，各候選詞並行查詢後依候選順序合併
func (s *CatalogSource) SearchByText(ctx context.Context, text string, limit int) ([]recipe.Recipe, error) {
	candidates := s.translator.TranslateQuery(text)
	if len(candidates) > maxFanout {
		candidates = candidates[:maxFanout]
	}

	found := make([][]recipe.CatalogMeal, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanout)
	for i, term := range candidates {
		i, term := i, term
		g.Go(func() error {
			meals, err := s.client.SearchByName(gctx, term)
			if err != nil {
				common.LogUpstreamFailure("catalog", "search_by_name", err, zap.String("term", term))
				return nil
			}
			found[i] = meals
			return nil
		})
	}
	_ = g.Wait()

	var meals []recipe.CatalogMeal
	seen := make(map[string]bool)
	for _, batch := range found {
		for _, m := range batch {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			meals = append(meals, m)
		}
	}
	return s.convert(meals, limit), nil
}

// SearchByIngredients 每個食材並行篩選，命中越多食材的食譜越前面，再展開前 limit 筆
func (s *CatalogSource) SearchByIngredients(ctx context.Context, ingredients []string, limit int) ([]recipe.Recipe, error) {
	terms := make([]string, 0, len(ingredients))
	seenTerm := make(map[string]bool)
	for _, ing := range ingredients {
		term := s.translator.IngredientToSource(ing)
		if term == "" || seenTerm[strings.ToLower(term)] {
			continue
		}
		seenTerm[strings.ToLower(term)] = true
		terms = append(terms, term)
	}

	found := make([][]catalog.MealStub, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanout)
	for i, term := range terms {
		i, term := i, term
		g.Go(func() error {
			stubs, err := s.client.FilterByIngredient(gctx, term)
			if err != nil {
				common.LogUpstreamFailure("catalog", "filter_by_ingredient", err, zap.String("ingredient", term))
				return nil
			}
			found[i] = stubs
			return nil
		})
	}
	_ = g.Wait()

	var order []string
	hits := make(map[string]int)
	for _, stubs := range found {
		for _, stub := range stubs {
			if _, ok := hits[stub.ID]; !ok {
				order = append(order, stub.ID)
			}
			hits[stub.ID]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return hits[order[i]] > hits[order[j]]
	})

	return s.hydrate(ctx, order, limit), nil
}

// SearchByTextAndIngredients 目錄不支援組合條件：先依文字搜尋，再只保留至少含一項指定食材的食譜
func (s *CatalogSource) SearchByTextAndIngredients(ctx context.Context, text string, ingredients []string, limit int) ([]recipe.Recipe, error) {
	candidates, err := s.SearchByText(ctx, text, 0)
	if err != nil {
		return nil, err
	}
	matched := make([]recipe.Recipe, 0, len(candidates))
	for _, r := range candidates {
		if recipe.ScoreIngredients(r, ingredients) > 0 {
			matched = append(matched, r)
		}
	}
	return truncate(matched, limit), nil
}

// SearchByCategory 分類名稱轉回目錄分類後篩選
func (s *CatalogSource) SearchByCategory(ctx context.Context, category string, limit int) ([]recipe.Recipe, error) {
	name, _ := s.translator.CategoryToSource(category)
	stubs, err := s.client.FilterByCategory(ctx, name)
	if err != nil {
		common.LogUpstreamFailure("catalog", "filter_by_category", err, zap.String("category", name))
		return nil, nil
	}
	return s.hydrate(ctx, stubIDs(stubs), limit), nil
}

// SearchByOrigin 菜系名稱轉回目錄地區後篩選
func (s *CatalogSource) SearchByOrigin(ctx context.Context, origin string, limit int) ([]recipe.Recipe, error) {
	area, _ := s.translator.OriginToSource(origin)
	stubs, err := s.client.FilterByArea(ctx, area)
	if err != nil {
		common.LogUpstreamFailure("catalog", "filter_by_area", err, zap.String("area", area))
		return nil, nil
	}
	return s.hydrate(ctx, stubIDs(stubs), limit), nil
}

// LookupByID 接受 themealdb-<id> 或原始 id
func (s *CatalogSource) LookupByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	mealID := strings.TrimPrefix(id, recipe.CatalogExternalID(""))
	if mealID == "" {
		return nil, nil
	}
	meal, err := s.client.LookupByID(ctx, mealID)
	if err != nil {
		common.LogUpstreamFailure("catalog", "lookup", err, zap.String("id", mealID))
		return nil, nil
	}
	if meal == nil {
		return nil, nil
	}
	recipes := s.convert([]recipe.CatalogMeal{*meal}, 1)
	if len(recipes) == 0 {
		return nil, nil
	}
	return &recipes[0], nil
}

// Categories 目錄分類名稱，已翻成工作語；上游失敗時為空
func (s *CatalogSource) Categories(ctx context.Context) []string {
	cats, err := s.client.ListCategories(ctx)
	if err != nil {
		common.LogUpstreamFailure("catalog", "list_categories", err)
		return []string{}
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		if c.Name != "" {
			names = append(names, s.translator.TranslateCategory(c.Name))
		}
	}
	return names
}

func (s *CatalogSource) hydrate(ctx context.Context, ids []string, limit int) []recipe.Recipe {
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return nil
	}
	return s.convert(s.client.LookupMany(ctx, ids), limit)
}

// convert 正規化後翻成工作語；格式不符的項目略過
func (s *CatalogSource) convert(meals []recipe.CatalogMeal, limit int) []recipe.Recipe {
	now := s.now()
	recipes := make([]recipe.Recipe, 0, len(meals))
	for _, m := range meals {
		r, err := recipe.Normalize(m, now)
		if err != nil {
			common.LogWarn("略過格式不符的目錄資料", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		recipes = append(recipes, s.translator.TranslateRecipe(r))
	}
	return truncate(recipes, limit)
}

func stubIDs(stubs []catalog.MealStub) []string {
	ids := make([]string, 0, len(stubs))
	for _, s := range stubs {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
