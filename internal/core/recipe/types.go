package recipe

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Source 食譜來源標記
type Source string

const (
	SourceLocal     Source = "local"
	SourceCatalog   Source = "catalog"
	SourceGenerated Source = "generated"
)

// Priority 排序時的來源優先序，數字越小越前面
func (s Source) Priority() int {
	switch s {
	case SourceCatalog:
		return 0
	case SourceLocal:
		return 1
	case SourceGenerated:
		return 2
	default:
		return 3
	}
}

// External 是否為需要經過持久化閘道的外部來源
func (s Source) External() bool {
	return s == SourceCatalog || s == SourceGenerated
}

// Valid 檢查來源是否合法
func (s Source) Valid() bool {
	return s == SourceLocal || s == SourceCatalog || s == SourceGenerated
}

// Difficulty 難度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty 接受英文與葡文標籤
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Fold(strings.TrimSpace(raw)) {
	case "easy", "facil":
		return DifficultyEasy, true
	case "medium", "medio", "media":
		return DifficultyMedium, true
	case "hard", "dificil":
		return DifficultyHard, true
	default:
		return "", false
	}
}

// Recipe 統一的食譜格式
// ID 為 0 代表尚未寫入本地資料庫
type Recipe struct {
	ID            int64      `json:"id,omitempty"`
	ExternalID    string     `json:"external_id,omitempty"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Origin        string     `json:"origin"`
	Ingredients   []string   `json:"ingredients"`
	Instructions  string     `json:"instructions"`
	EstimatedTime string     `json:"estimated_time"`
	Difficulty    Difficulty `json:"difficulty"`
	ImageURL      string     `json:"image_url"`
	Tags          []string   `json:"tags"`
	Source        Source     `json:"source"`
	Active        bool       `json:"active"`
	Verified      bool       `json:"verified"`
	CreatedAt     time.Time  `json:"created_at"`
	Score         int        `json:"score"`
}

// DedupKey 合併結果時的去重鍵
func (r Recipe) DedupKey() string {
	if r.ExternalID != "" {
		return string(r.Source) + ":" + r.ExternalID
	}
	if r.ID != 0 {
		return "id:" + strconv.FormatInt(r.ID, 10)
	}
	return "name:" + string(r.Source) + ":" + Fold(r.Name)
}

// Favorite 使用者收藏
type Favorite struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"owner_id"`
	RecipeID   int64     `json:"recipe_id"`
	Note       string    `json:"note"`
	Rating     int       `json:"rating"`
	Tags       []string  `json:"tags"`
	Collection string    `json:"collection"`
	CreatedAt  time.Time `json:"created_at"`
	Recipe     *Recipe   `json:"recipe,omitempty"`
}

// Filters 回傳給呼叫端的已套用條件
type Filters struct {
	Query       string   `json:"query,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Category    string   `json:"category,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	Limit       int      `json:"limit"`
}

// SearchResult 聚合查詢結果
type SearchResult struct {
	Recipes []Recipe `json:"recipes"`
	Filters Filters  `json:"filters"`
	Total   int      `json:"total"`
	Source  string   `json:"source"` // local | catalog | mixed
}

var (
	ErrInvalidQuery     = errors.New("invalid query")
	ErrNotFound         = errors.New("recipe not found")
	ErrFavoriteNotFound = errors.New("favorite not found")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrUnsupportedQuery = errors.New("query not supported by source")
)
