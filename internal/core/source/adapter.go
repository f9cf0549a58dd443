package source

import (
	"context"

	"recipe-aggregator/internal/core/recipe"
)

// Adapter 對單一資料來源的統一搜尋介面
type Adapter interface {
	Kind() recipe.Source
	SearchByText(ctx context.Context, text string, limit int) ([]recipe.Recipe, error)
	SearchByIngredients(ctx context.Context, ingredients []string, limit int) ([]recipe.Recipe, error)
	// SearchByTextAndIngredients 文字與食材同時成立
	SearchByTextAndIngredients(ctx context.Context, text string, ingredients []string, limit int) ([]recipe.Recipe, error)
	SearchByCategory(ctx context.Context, category string, limit int) ([]recipe.Recipe, error)
	SearchByOrigin(ctx context.Context, origin string, limit int) ([]recipe.Recipe, error)
	// LookupByID 找不到時回傳 nil, nil
	LookupByID(ctx context.Context, id string) (*recipe.Recipe, error)
}

type callerKey struct{}

// WithCaller 將呼叫者身分放進 context，供需要計額度的來源使用
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom 取出呼叫者身分
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

func truncate(recipes []recipe.Recipe, limit int) []recipe.Recipe {
	if limit > 0 && len(recipes) > limit {
		return recipes[:limit]
	}
	return recipes
}
