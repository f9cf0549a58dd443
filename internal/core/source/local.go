package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

// LocalFilter 本地資料庫查詢條件，字串皆為包含比對
type LocalFilter struct {
	Text        string
	Ingredients []string
	Category    string
	Origin      string
	Limit       int
}

// RecipeReader 本地食譜的讀取能力
type RecipeReader interface {
	FindRecipes(ctx context.Context, filter LocalFilter) ([]recipe.LocalRow, error)
	// FindRecipeByID 找不到時回傳 recipe.ErrNotFound
	FindRecipeByID(ctx context.Context, id int64) (*recipe.LocalRow, error)
}

// LocalSource 本地資料庫來源
type LocalSource struct {
	store RecipeReader
	now   func() time.Time
}

// NewLocalSource 創建本地來源
func NewLocalSource(store RecipeReader) *LocalSource {
	return &LocalSource{store: store, now: time.Now}
}

func (s *LocalSource) Kind() recipe.Source { return recipe.SourceLocal }

func (s *LocalSource) SearchByText(ctx context.Context, text string, limit int) ([]recipe.Recipe, error) {
	return s.find(ctx, LocalFilter{Text: text, Limit: limit})
}

func (s *LocalSource) SearchByIngredients(ctx context.Context, ingredients []string, limit int) ([]recipe.Recipe, error) {
	return s.find(ctx, LocalFilter{Ingredients: ingredients, Limit: limit})
}

func (s *LocalSource) SearchByTextAndIngredients(ctx context.Context, text string, ingredients []string, limit int) ([]recipe.Recipe, error) {
	return s.find(ctx, LocalFilter{Text: text, Ingredients: ingredients, Limit: limit})
}

func (s *LocalSource) SearchByCategory(ctx context.Context, category string, limit int) ([]recipe.Recipe, error) {
	return s.find(ctx, LocalFilter{Category: category, Limit: limit})
}

func (s *LocalSource) SearchByOrigin(ctx context.Context, origin string, limit int) ([]recipe.Recipe, error) {
	return s.find(ctx, LocalFilter{Origin: origin, Limit: limit})
}

// LookupByID 接受數字主鍵
func (s *LocalSource) LookupByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return nil, nil
	}
	row, err := s.store.FindRecipeByID(ctx, n)
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load recipe %d: %w", n, err)
	}
	r, err := recipe.Normalize(row, s.now())
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *LocalSource) find(ctx context.Context, filter LocalFilter) ([]recipe.Recipe, error) {
	rows, err := s.store.FindRecipes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query local recipes: %w", err)
	}

	now := s.now()
	recipes := make([]recipe.Recipe, 0, len(rows))
	for _, row := range rows {
		r, err := recipe.Normalize(row, now)
		if err != nil {
			common.LogWarn("略過無法正規化的本地食譜", zap.Int64("id", row.ID), zap.Error(err))
			continue
		}
		recipes = append(recipes, r)
	}
	return truncate(recipes, filter.Limit), nil
}
