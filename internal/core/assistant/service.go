package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recipe-aggregator/internal/core/ai/provider"
	"recipe-aggregator/internal/core/ai/service"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/source"
	"recipe-aggregator/internal/pkg/common"
)

// 對話只帶最近的幾輪
const historyTurns = 10

const chatSystemPrompt = `Você é o assistente culinário de um aplicativo de receitas brasileiro.
Responda sempre em português do Brasil, de forma curta e prática.
Ao final, escreva uma linha "SUGESTÕES:" seguida de até 3 perguntas curtas que o usuário poderia fazer a seguir, separadas por "|".`

const tipSystemPrompt = `Você é um chef brasileiro. Dê UMA dica culinária curta (no máximo 3 frases), em português do Brasil, sem introdução.`

const (
	fallbackReply = "Desculpe, não consegui responder agora. Enquanto isso, experimente buscar receitas pelos ingredientes que você tem em casa!"
	fallbackTip   = "Tempere as carnes com antecedência e deixe descansar na geladeira: o sabor fica mais intenso e a carne mais macia."
)

var defaultSuggestions = []string{
	"O que posso cozinhar com frango e arroz?",
	"Sugira uma sobremesa rápida",
	"Como substituir ovos em bolos?",
}

// Generator 受額度與快取控管的生成能力
type Generator interface {
	Generate(ctx context.Context, caller, cacheKey string, req *provider.Request) (*service.Result, error)
	GenerateUnmetered(ctx context.Context, caller, cacheKey string, req *provider.Request) (*service.Result, error)
	Usage(ctx context.Context, caller string) (service.Usage, error)
}

// Persister 生成的食譜寫入本地
type Persister interface {
	MaybePersist(ctx context.Context, r recipe.Recipe) (int64, error)
}

// Turn 一輪對話
type Turn struct {
	Role    string `json:"role" binding:"omitempty,oneof=user assistant"`
	Content string `json:"content"`
}

// ChatReply 對話回覆；只有計量模式才帶 Usage
type ChatReply struct {
	Reply       string         `json:"reply"`
	Suggestions []string       `json:"suggestions"`
	Fallback    bool           `json:"fallback"`
	Usage       *service.Usage `json:"usage,omitempty"`
}

// TipReply 烹飪小撇步
type TipReply struct {
	Tip      string         `json:"tip"`
	CacheHit bool           `json:"cache_hit"`
	Fallback bool           `json:"fallback"`
	Usage    *service.Usage `json:"usage,omitempty"`
}

// Service 對話助理、小撇步與依食材建議食譜
type Service struct {
	generator   Generator
	generative  *source.GenerativeSource
	persister   Persister
	autoPersist bool
}

// NewService 創建助理服務；persister 為 nil 時不寫入生成的食譜
func NewService(generator Generator, persister Persister, autoPersist bool) *Service {
	return &Service{
		generator:   generator,
		generative:  source.NewGenerativeSource(generator),
		persister:   persister,
		autoPersist: autoPersist && persister != nil,
	}
}

// Chat 回覆使用者訊息；生成失敗時回覆預設文字，只有額度用完會回傳錯誤
func (s *Service) Chat(ctx context.Context, caller, message string, history []Turn, metered bool) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, common.NewValidationError("message is required")
	}

	req := &provider.Request{Messages: buildMessages(message, history)}

	var (
		res *service.Result
		err error
	)
	if metered {
		res, err = s.generator.Generate(ctx, caller, "", req)
	} else {
		res, err = s.generator.GenerateUnmetered(ctx, caller, "", req)
	}

	var quotaErr *service.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return nil, err
	}

	reply := &ChatReply{}
	if err != nil {
		common.LogWarn("對話生成失敗，使用預設回覆", zap.String("caller", caller), zap.Error(err))
		reply.Reply = fallbackReply
		reply.Suggestions = append([]string(nil), defaultSuggestions...)
		reply.Fallback = true
	} else {
		reply.Reply, reply.Suggestions = splitSuggestions(res.Content)
	}

	if metered {
		reply.Usage = s.usage(ctx, caller, res)
	}
	return reply, nil
}

// Tip 依分類與情境取得一則小撇步，相同條件會命中快取
func (s *Service) Tip(ctx context.Context, caller, category, situation string) (*TipReply, error) {
	category = strings.TrimSpace(category)
	situation = strings.TrimSpace(situation)

	prompt := "Dê uma dica de culinária"
	if category != "" {
		prompt += " sobre " + category
	}
	if situation != "" {
		prompt += " para esta situação: " + situation
	}

	res, err := s.generator.Generate(ctx, caller, TipCacheKey(category, situation), &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: tipSystemPrompt},
			{Role: provider.RoleUser, Content: prompt},
		},
		MaxTokens: 200,
	})

	var quotaErr *service.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return nil, err
	}
	if err != nil {
		common.LogWarn("小撇步生成失敗，使用預設內容", zap.String("caller", caller), zap.Error(err))
		return &TipReply{Tip: fallbackTip, Fallback: true, Usage: s.usage(ctx, caller, nil)}, nil
	}
	return &TipReply{Tip: res.Content, CacheHit: res.CacheHit, Usage: &res.Usage}, nil
}

// TipCacheKey 小撇步的快取鍵
func TipCacheKey(category, situation string) string {
	return fmt.Sprintf("dica_%s_%s", recipe.Fold(category), recipe.Fold(situation))
}

// Suggest 依手邊食材請模型建議食譜；額度用完時回傳錯誤
func (s *Service) Suggest(ctx context.Context, caller string, ingredients []string, limit int) ([]recipe.Recipe, error) {
	q := recipe.Query{Caller: caller, Ingredients: ingredients, Limit: limit}.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx = source.WithCaller(ctx, caller)
	recipes, err := s.generative.SearchByIngredients(ctx, q.Ingredients, limit)
	if err != nil {
		var quotaErr *service.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, err
		}
		common.LogWarn("食材建議生成失敗", zap.String("caller", caller), zap.Error(err))
		return []recipe.Recipe{}, nil
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}

	ranked := recipe.Rank(recipes, q)
	if s.autoPersist {
		for i := range ranked {
			id, err := s.persister.MaybePersist(ctx, ranked[i])
			if err != nil {
				common.LogError("儲存建議食譜失敗",
					zap.String("external_id", ranked[i].ExternalID),
					zap.Error(err),
				)
				continue
			}
			ranked[i].ID = id
		}
	}
	return ranked, nil
}

// Usage 查詢今日額度
func (s *Service) Usage(ctx context.Context, caller string) (service.Usage, error) {
	return s.generator.Usage(ctx, caller)
}

func (s *Service) usage(ctx context.Context, caller string, res *service.Result) *service.Usage {
	if res != nil && res.Usage.Limit != 0 {
		u := res.Usage
		return &u
	}
	u, err := s.generator.Usage(ctx, caller)
	if err != nil {
		common.LogWarn("讀取額度失敗", zap.String("caller", caller), zap.Error(err))
	}
	return &u
}

func buildMessages(message string, history []Turn) []provider.Message {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: chatSystemPrompt})
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := provider.RoleUser
		if turn.Role == provider.RoleAssistant {
			role = provider.RoleAssistant
		}
		messages = append(messages, provider.Message{Role: role, Content: content})
	}
	return append(messages, provider.Message{Role: provider.RoleUser, Content: message})
}

// splitSuggestions 拆出 SUGESTÕES: 之後的建議；沒有時用預設建議
func splitSuggestions(content string) (string, []string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		folded := recipe.Fold(trimmed)
		if !strings.HasPrefix(folded, "sugestoes:") {
			continue
		}

		rest := strings.TrimSpace(trimmed[strings.Index(trimmed, ":")+1:])
		items := splitItems(rest)
		for _, next := range lines[i+1:] {
			items = append(items, splitItems(next)...)
		}

		reply := strings.TrimSpace(strings.Join(lines[:i], "\n"))
		if len(items) == 0 {
			items = append([]string(nil), defaultSuggestions...)
		}
		if len(items) > 3 {
			items = items[:3]
		}
		return reply, items
	}
	return strings.TrimSpace(content), append([]string(nil), defaultSuggestions...)
}

func splitItems(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "-•*0123456789. ")
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
