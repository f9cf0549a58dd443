package recipe

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/api/handlers"
	"recipe-aggregator/internal/api/middleware"
	recipeCore "recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// Searcher 聚合查詢
type Searcher interface {
	Search(ctx context.Context, q recipeCore.Query) (*recipeCore.SearchResult, error)
	Lookup(ctx context.Context, id string) (*recipeCore.Recipe, error)
}

// Suggester 依食材生成食譜
type Suggester interface {
	Suggest(ctx context.Context, caller string, ingredients []string, limit int) ([]recipeCore.Recipe, error)
}

// CategoryLister 目錄分類
type CategoryLister interface {
	Categories(ctx context.Context) []string
}

// SuggestRequest 依手邊食材建議食譜
type SuggestRequest struct {
	Ingredients []string `json:"ingredients" binding:"required,min=1,max=20"`
	Limit       int      `json:"limit" binding:"omitempty,min=1,max=10"`
}

// SuggestResponse 建議結果
type SuggestResponse struct {
	Recipes []recipeCore.Recipe `json:"recipes"`
	Total   int                 `json:"total"`
}

// Handler 食譜處理程序
type Handler struct {
	searcher   Searcher
	suggester  Suggester
	categories CategoryLister
}

// NewHandler 創建新的食譜處理程序
func NewHandler(searcher Searcher, suggester Suggester, categories CategoryLister) *Handler {
	return &Handler{searcher: searcher, suggester: suggester, categories: categories}
}

// Search GET /recipes/search?q=&ingredients=a,b&category=&origin=&limit=&supplement=&generate=
func (h *Handler) Search(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			handlers.BadRequest(c, err)
			return
		}
		limit = n
	}

	q := recipeCore.Query{
		Caller:        caller,
		Text:          c.Query("q"),
		Ingredients:   common.SplitCSV(c.Query("ingredients")),
		Category:      c.Query("category"),
		Origin:        c.Query("origin"),
		Limit:         limit,
		Supplement:    queryBool(c, "supplement"),
		SkipGenerated: queryFalse(c, "generate"),
	}

	result, err := h.searcher.Search(c.Request.Context(), q)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get GET /recipes/:id，接受本地數字 id 或 themealdb-<id>
func (h *Handler) Get(c *gin.Context) {
	r, err := h.searcher.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Suggest POST /recipes/suggest
func (h *Handler) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	caller, _ := middleware.CallerFrom(c)

	common.LogInfo("食材建議請求",
		zap.String("caller", caller),
		zap.Strings("ingredients", req.Ingredients),
	)

	recipes, err := h.suggester.Suggest(c.Request.Context(), caller, req.Ingredients, req.Limit)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuggestResponse{Recipes: recipes, Total: len(recipes)})
}

// Categories GET /recipes/categories
func (h *Handler) Categories(c *gin.Context) {
	names := h.categories.Categories(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"categories": names, "total": len(names)})
}

// queryFalse 參數明確設為 false 時才成立
func queryFalse(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && !v
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && v
}
