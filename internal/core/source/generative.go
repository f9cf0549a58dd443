package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-aggregator/internal/core/ai/provider"
	"recipe-aggregator/internal/core/ai/service"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

// 單次最多請模型產生的食譜數
const maxDrafts = 3

const recipeSystemPrompt = `Você é um chef brasileiro experiente. Responda APENAS com JSON válido, sem texto extra, no formato:
{"recipes":[{"name":"","category":"","origin":"","time":"","difficulty":"Fácil|Médio|Difícil","ingredients":["quantidade unidade ingrediente"],"instructions":"","tags":[""]}]}`

// Generator 受額度與快取控管的生成能力
type Generator interface {
	Generate(ctx context.Context, caller, cacheKey string, req *provider.Request) (*service.Result, error)
}

// GenerativeSource AI 備援來源，只在其他來源不足時被呼叫
type GenerativeSource struct {
	generator Generator
	now       func() time.Time
}

// NewGenerativeSource 創建生成來源
func NewGenerativeSource(generator Generator) *GenerativeSource {
	return &GenerativeSource{generator: generator, now: time.Now}
}

func (s *GenerativeSource) Kind() recipe.Source { return recipe.SourceGenerated }

// IngredientsCacheKey 食材建議的快取鍵，保留輸入順序
func IngredientsCacheKey(ingredients []string) string {
	return "ingredientes_" + strings.Join(cleanIngredients(ingredients), ",")
}

func cleanIngredients(ingredients []string) []string {
	parts := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing = strings.ToLower(strings.TrimSpace(ing)); ing != "" {
			parts = append(parts, ing)
		}
	}
	return parts
}

func (s *GenerativeSource) SearchByText(ctx context.Context, text string, limit int) ([]recipe.Recipe, error) {
	prompt := fmt.Sprintf("Sugira até %d receitas que correspondam à busca: %s", draftCount(limit), text)
	return s.generate(ctx, "busca_"+recipe.Fold(strings.TrimSpace(text)), prompt, limit)
}

// SearchByIngredients 以手邊食材請模型建議食譜
func (s *GenerativeSource) SearchByIngredients(ctx context.Context, ingredients []string, limit int) ([]recipe.Recipe, error) {
	cleaned := cleanIngredients(ingredients)
	if len(cleaned) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf("Sugira até %d receitas usando principalmente estes ingredientes: %s",
		draftCount(limit), common.StringSliceToString(cleaned))
	return s.generate(ctx, IngredientsCacheKey(ingredients), prompt, limit)
}

func (s *GenerativeSource) SearchByTextAndIngredients(ctx context.Context, text string, ingredients []string, limit int) ([]recipe.Recipe, error) {
	cleaned := cleanIngredients(ingredients)
	if len(cleaned) == 0 {
		return s.SearchByText(ctx, text, limit)
	}
	prompt := fmt.Sprintf("Sugira até %d receitas que correspondam à busca \"%s\" usando estes ingredientes: %s",
		draftCount(limit), text, common.StringSliceToString(cleaned))
	key := "busca_" + recipe.Fold(strings.TrimSpace(text)) + "_" + IngredientsCacheKey(ingredients)
	return s.generate(ctx, key, prompt, limit)
}

func (s *GenerativeSource) SearchByCategory(ctx context.Context, category string, limit int) ([]recipe.Recipe, error) {
	prompt := fmt.Sprintf("Sugira até %d receitas da categoria: %s", draftCount(limit), category)
	return s.generate(ctx, "categoria_"+recipe.Fold(strings.TrimSpace(category)), prompt, limit)
}

// SearchByOrigin 不支援
func (s *GenerativeSource) SearchByOrigin(ctx context.Context, origin string, limit int) ([]recipe.Recipe, error) {
	return nil, nil
}

// LookupByID 生成的食譜沒有可查詢的遠端識別碼
func (s *GenerativeSource) LookupByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	return nil, nil
}

func (s *GenerativeSource) generate(ctx context.Context, cacheKey, prompt string, limit int) ([]recipe.Recipe, error) {
	caller := CallerFrom(ctx)
	res, err := s.generator.Generate(ctx, caller, cacheKey, &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: recipeSystemPrompt},
			{Role: provider.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	drafts, err := ParseDrafts(res.Content)
	if err != nil {
		common.LogWarn("無法解析 AI 產生的食譜", zap.String("key", cacheKey), zap.Error(err))
		return nil, nil
	}

	now := s.now()
	recipes := make([]recipe.Recipe, 0, len(drafts))
	for _, d := range drafts {
		r, err := recipe.Normalize(d, now)
		if err != nil {
			common.LogWarn("略過不完整的 AI 食譜", zap.String("name", d.Name), zap.Error(err))
			continue
		}
		recipes = append(recipes, r)
	}
	return truncate(recipes, limit), nil
}

// ParseDrafts 從模型的自由文字中取出食譜草稿；接受 {"recipes":[...]} 或單一食譜物件
func ParseDrafts(content string) ([]recipe.GeneratedDraft, error) {
	var wrapped struct {
		Recipes []recipe.GeneratedDraft `json:"recipes"`
	}
	if err := common.ParseLooseJSON(content, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Recipes) > 0 {
		return wrapped.Recipes, nil
	}

	var single recipe.GeneratedDraft
	if err := common.ParseLooseJSON(content, &single); err != nil {
		return nil, err
	}
	if strings.TrimSpace(single.Name) == "" {
		return nil, errors.New("no recipe drafts in response")
	}
	return []recipe.GeneratedDraft{single}, nil
}

func draftCount(limit int) int {
	if limit <= 0 || limit > maxDrafts {
		return maxDrafts
	}
	return limit
}
