package recipe

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Query 聚合查詢的輸入條件
type Query struct {
	Caller        string   `validate:"required"`
	Text          string   `validate:"max=200"`
	Ingredients   []string `validate:"max=20,dive,required,max=64"`
	Category      string   `validate:"max=64"`
	Origin        string   `validate:"max=64"`
	Limit         int      `validate:"min=0,max=100"`
	Supplement    bool
	SkipGenerated bool
}

// Normalize 去除空白並丟棄空的食材
func (q Query) Normalize() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	q.Origin = strings.TrimSpace(q.Origin)
	ingredients := make([]string, 0, len(q.Ingredients))
	for _, ing := range q.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	q.Ingredients = ingredients
	return q
}

// Validate 在呼叫任何來源前檢查輸入
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	primary := 0
	for _, set := range []bool{q.Text != "", len(q.Ingredients) > 0, q.Category != "", q.Origin != ""} {
		if set {
			primary++
		}
	}
	if primary == 0 {
		return fmt.Errorf("%w: no query or filter given", ErrInvalidQuery)
	}
	// 只有文字與食材可以同時出現
	if primary > 1 && !(primary == 2 && q.Text != "" && len(q.Ingredients) > 0) {
		return fmt.Errorf("%w: only text and ingredients may be combined", ErrInvalidQuery)
	}
	return nil
}

// Filters 回傳給呼叫端的條件
func (q Query) Filters() Filters {
	return Filters{
		Query:       q.Text,
		Ingredients: q.Ingredients,
		Category:    q.Category,
		Origin:      q.Origin,
		Limit:       q.Limit,
	}
}
