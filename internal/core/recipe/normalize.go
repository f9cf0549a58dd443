package recipe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 每種來源的原始格式各自一個型別，經由 Normalize 的單一 switch 轉成 Recipe
type RawRecord interface {
	Kind() Source
	raw()
}

// LocalRow 本地資料庫的一列
type LocalRow struct {
	ID            int64
	ExternalID    string
	Source        string
	Name          string
	Category      string
	Origin        string
	Ingredients   []string
	Instructions  string
	EstimatedTime string
	Difficulty    string
	ImageURL      string
	Tags          []string
	Active        bool
	Verified      bool
	CreatedAt     time.Time
}

func (LocalRow) Kind() Source { return SourceLocal }
func (LocalRow) raw()         {}

// CatalogSlots TheMealDB 的食材欄位數
const CatalogSlots = 20

// CatalogMeal TheMealDB 的一筆 meal
type CatalogMeal struct {
	ID           string
	Name         string
	Category     string
	Area         string
	Instructions string
	Thumb        string
	Tags         string
	Ingredients  [CatalogSlots]string
	Measures     [CatalogSlots]string
}

func (CatalogMeal) Kind() Source { return SourceCatalog }
func (CatalogMeal) raw()         {}

// UnmarshalJSON 將 strIngredient1..20 / strMeasure1..20 收進陣列
func (m *CatalogMeal) UnmarshalJSON(data []byte) error {
	var fields map[string]*string
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	get := func(key string) string {
		if v, ok := fields[key]; ok && v != nil {
			return strings.TrimSpace(*v)
		}
		return ""
	}

	m.ID = get("idMeal")
	m.Name = get("strMeal")
	m.Category = get("strCategory")
	m.Area = get("strArea")
	m.Instructions = get("strInstructions")
	m.Thumb = get("strMealThumb")
	m.Tags = get("strTags")
	for i := 0; i < CatalogSlots; i++ {
		m.Ingredients[i] = get("strIngredient" + strconv.Itoa(i+1))
		m.Measures[i] = get("strMeasure" + strconv.Itoa(i+1))
	}
	return nil
}

// IngredientLines 依序組出「數量 單位 食材」，跳過空欄位
func (m CatalogMeal) IngredientLines() []string {
	lines := make([]string, 0, CatalogSlots)
	for i := 0; i < CatalogSlots; i++ {
		item := strings.TrimSpace(m.Ingredients[i])
		if item == "" {
			continue
		}
		measure := strings.TrimSpace(m.Measures[i])
		if measure == "" {
			lines = append(lines, item)
			continue
		}
		lines = append(lines, measure+" "+item)
	}
	return lines
}

// CatalogExternalID 目錄食譜的外部識別碼
func CatalogExternalID(mealID string) string {
	return "themealdb-" + mealID
}

// GeneratedDraft AI 產生的食譜草稿
type GeneratedDraft struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Origin       string   `json:"origin"`
	Time         string   `json:"time"`
	Difficulty   string   `json:"difficulty"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Tags         []string `json:"tags"`
}

func (GeneratedDraft) Kind() Source { return SourceGenerated }
func (GeneratedDraft) raw()         {}

// 草稿缺欄位時的預設值
const (
	DefaultGeneratedTime     = "30 min"
	DefaultGeneratedCategory = "Diversos"
)

var generatedNamespace = uuid.MustParse("9b0d3c4e-3c55-4b8e-9a53-6d1f3a4b2c10")

// GeneratedExternalID 以名稱與食材產生穩定的外部識別碼，重複產生的相同草稿會得到同一個 ID
func GeneratedExternalID(name string, ingredients []string) string {
	parts := make([]string, 0, len(ingredients)+1)
	parts = append(parts, Fold(strings.TrimSpace(name)))
	for _, ing := range ingredients {
		parts = append(parts, Fold(strings.TrimSpace(ing)))
	}
	return "generated-" + uuid.NewSHA1(generatedNamespace, []byte(strings.Join(parts, "|"))).String()
}

// Normalize 將任一來源的原始資料轉為 Recipe
func Normalize(raw RawRecord, now time.Time) (Recipe, error) {
	switch r := raw.(type) {
	case LocalRow:
		return normalizeLocal(r), nil
	case *LocalRow:
		return normalizeLocal(*r), nil
	case CatalogMeal:
		return normalizeCatalog(r, now)
	case *CatalogMeal:
		return normalizeCatalog(*r, now)
	case GeneratedDraft:
		return normalizeGenerated(r, now)
	case *GeneratedDraft:
		return normalizeGenerated(*r, now)
	default:
		return Recipe{}, fmt.Errorf("%w: unknown record type %T", ErrMalformedRecord, raw)
	}
}

func normalizeLocal(r LocalRow) Recipe {
	source := Source(r.Source)
	if !source.Valid() {
		source = SourceLocal
	}
	difficulty, ok := ParseDifficulty(r.Difficulty)
	if !ok {
		difficulty = EstimateDifficulty(len(r.Ingredients), instructionLength(r.Instructions))
	}
	estimated := r.EstimatedTime
	if estimated == "" {
		estimated = EstimateTime(len(r.Ingredients), instructionLength(r.Instructions))
	}
	return Recipe{
		ID:            r.ID,
		ExternalID:    r.ExternalID,
		Name:          r.Name,
		Category:      r.Category,
		Origin:        r.Origin,
		Ingredients:   nonNil(r.Ingredients),
		Instructions:  r.Instructions,
		EstimatedTime: estimated,
		Difficulty:    difficulty,
		ImageURL:      r.ImageURL,
		Tags:          nonNil(r.Tags),
		Source:        source,
		Active:        r.Active,
		Verified:      r.Verified,
		CreatedAt:     r.CreatedAt,
	}
}

func normalizeCatalog(m CatalogMeal, now time.Time) (Recipe, error) {
	if m.ID == "" || m.Name == "" {
		return Recipe{}, fmt.Errorf("%w: catalog meal without id or name", ErrMalformedRecord)
	}
	ingredients := m.IngredientLines()
	length := instructionLength(m.Instructions)
	return Recipe{
		ExternalID:    CatalogExternalID(m.ID),
		Name:          m.Name,
		Category:      m.Category,
		Origin:        m.Area,
		Ingredients:   ingredients,
		Instructions:  m.Instructions,
		EstimatedTime: EstimateTime(len(ingredients), length),
		Difficulty:    EstimateDifficulty(len(ingredients), length),
		ImageURL:      m.Thumb,
		Tags:          SplitTags(m.Tags),
		Source:        SourceCatalog,
		Active:        true,
		Verified:      true,
		CreatedAt:     now,
	}, nil
}

func normalizeGenerated(d GeneratedDraft, now time.Time) (Recipe, error) {
	name := strings.TrimSpace(d.Name)
	ingredients := make([]string, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		if ing = strings.TrimSpace(strings.TrimLeft(ing, "-•* ")); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	if name == "" || len(ingredients) == 0 {
		return Recipe{}, fmt.Errorf("%w: generated draft without name or ingredients", ErrMalformedRecord)
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = DefaultGeneratedCategory
	}
	estimated := strings.TrimSpace(d.Time)
	if estimated == "" {
		estimated = DefaultGeneratedTime
	}
	difficulty, ok := ParseDifficulty(d.Difficulty)
	if !ok {
		difficulty = DifficultyMedium
	}

	return Recipe{
		ExternalID:    GeneratedExternalID(name, ingredients),
		Name:          name,
		Category:      category,
		Origin:        strings.TrimSpace(d.Origin),
		Ingredients:   ingredients,
		Instructions:  strings.TrimSpace(d.Instructions),
		EstimatedTime: estimated,
		Difficulty:    difficulty,
		Tags:          nonNil(d.Tags),
		Source:        SourceGenerated,
		Active:        true,
		Verified:      false,
		CreatedAt:     now,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
