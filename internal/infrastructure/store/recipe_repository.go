package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/source"
)

// RecipeRepository recipes 資料表的存取
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository 創建食譜存取層
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// condition 一個 WHERE 片段
type condition struct {
	query string
	args  []interface{}
}

// likePattern 轉義 LIKE 特殊字元並包成包含比對
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

// filterConditions 將查詢條件轉成 WHERE 片段；只查啟用中的食譜
func filterConditions(filter source.LocalFilter) []condition {
	conds := []condition{{query: "active = ?", args: []interface{}{true}}}

	if text := strings.TrimSpace(filter.Text); text != "" {
		p := likePattern(text)
		conds = append(conds, condition{
			query: "(name ILIKE ? OR category ILIKE ? OR origin ILIKE ? OR ingredients::text ILIKE ? OR tags::text ILIKE ?)",
			args:  []interface{}{p, p, p, p, p},
		})
	}

	if len(filter.Ingredients) > 0 {
		parts := make([]string, 0, len(filter.Ingredients))
		args := make([]interface{}, 0, len(filter.Ingredients))
		for _, ing := range filter.Ingredients {
			if strings.TrimSpace(ing) == "" {
				continue
			}
			parts = append(parts, "ingredients::text ILIKE ?")
			args = append(args, likePattern(ing))
		}
		if len(parts) > 0 {
			conds = append(conds, condition{query: "(" + strings.Join(parts, " OR ") + ")", args: args})
		}
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		conds = append(conds, condition{query: "category ILIKE ?", args: []interface{}{likePattern(category)}})
	}
	if origin := strings.TrimSpace(filter.Origin); origin != "" {
		conds = append(conds, condition{query: "origin ILIKE ?", args: []interface{}{likePattern(origin)}})
	}
	return conds
}

// FindRecipes 依條件查詢啟用中的食譜
func (r *RecipeRepository) FindRecipes(ctx context.Context, filter source.LocalFilter) ([]recipe.LocalRow, error) {
	q := r.db.WithContext(ctx).Model(&RecipeModel{})
	for _, c := range filterConditions(filter) {
		q = q.Where(c.query, c.args...)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []RecipeModel
	if err := q.Order("verified desc").Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}

	rows := make([]recipe.LocalRow, 0, len(models))
	for i := range models {
		rows = append(rows, models[i].toRow())
	}
	return rows, nil
}

// FindRecipeByID 找不到時回傳 recipe.ErrNotFound
func (r *RecipeRepository) FindRecipeByID(ctx context.Context, id int64) (*recipe.LocalRow, error) {
	var m RecipeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrNotFound
		}
		return nil, err
	}
	row := m.toRow()
	return &row, nil
}

// InsertIfAbsent 以唯一索引處理重複：衝突時不寫入並回傳既有的 id
func (r *RecipeRepository) InsertIfAbsent(ctx context.Context, rec recipe.Recipe) (int64, bool, error) {
	if rec.ExternalID == "" {
		return 0, false, fmt.Errorf("insert %q: external id is required", rec.Name)
	}

	m := newRecipeModel(rec)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "external_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected > 0 {
		return m.ID, true, nil
	}

	var existing RecipeModel
	if err := r.db.WithContext(ctx).
		Select("id").
		Where("source = ? AND external_id = ?", m.Source, *m.ExternalID).
		Take(&existing).Error; err != nil {
		return 0, false, fmt.Errorf("load existing %s: %w", rec.ExternalID, err)
	}
	return existing.ID, false, nil
}

// CreateRecipe 新增一筆本地食譜
func (r *RecipeRepository) CreateRecipe(ctx context.Context, rec recipe.Recipe) (int64, error) {
	rec.ExternalID = ""
	rec.Source = recipe.SourceLocal
	m := newRecipeModel(rec)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}
