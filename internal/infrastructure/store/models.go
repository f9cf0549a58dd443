package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"recipe-aggregator/internal/core/recipe"
)

// RecipeModel recipes 資料表
// (source, external_id) 唯一索引保證每個外部食譜最多一列；本地食譜的 external_id 為 NULL
type RecipeModel struct {
	ID            int64          `gorm:"primaryKey;autoIncrement"`
	ExternalID    *string        `gorm:"size:128;uniqueIndex:idx_recipes_source_external,priority:2"`
	Source        string         `gorm:"size:16;not null;default:local;uniqueIndex:idx_recipes_source_external,priority:1"`
	Name          string         `gorm:"size:255;not null;index"`
	Category      string         `gorm:"size:128;index"`
	Origin        string         `gorm:"size:128;index"`
	Ingredients   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	Instructions  string         `gorm:"type:text"`
	EstimatedTime string         `gorm:"size:32"`
	Difficulty    string         `gorm:"size:16"`
	ImageURL      string         `gorm:"size:512"`
	Tags          datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	Active        bool           `gorm:"not null;default:true;index"`
	Verified      bool           `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (RecipeModel) TableName() string { return "recipes" }

// FavoriteModel favorites 資料表
type FavoriteModel struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	OwnerID    string         `gorm:"size:128;not null;index:idx_favorites_owner"`
	RecipeID   int64          `gorm:"not null;index"`
	Note       string         `gorm:"type:text"`
	Rating     int            `gorm:"not null;default:0"`
	Tags       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	Collection string         `gorm:"size:128;index:idx_favorites_owner"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Recipe *RecipeModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (FavoriteModel) TableName() string { return "favorites" }

// Models AutoMigrate 用的模型清單
func Models() []interface{} {
	return []interface{}{&RecipeModel{}, &FavoriteModel{}}
}

func encodeList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

func decodeList(data datatypes.JSON) []string {
	items := []string{}
	if len(data) == 0 {
		return items
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return []string{}
	}
	return items
}

// newRecipeModel Recipe 轉成資料列；沒有外部 id 的食譜一律視為本地
func newRecipeModel(r recipe.Recipe) *RecipeModel {
	m := &RecipeModel{
		Source:        string(r.Source),
		Name:          r.Name,
		Category:      r.Category,
		Origin:        r.Origin,
		Ingredients:   encodeList(r.Ingredients),
		Instructions:  r.Instructions,
		EstimatedTime: r.EstimatedTime,
		Difficulty:    string(r.Difficulty),
		ImageURL:      r.ImageURL,
		Tags:          encodeList(r.Tags),
		Active:        true,
		Verified:      r.Verified,
	}
	if r.ExternalID != "" {
		id := r.ExternalID
		m.ExternalID = &id
	} else {
		m.Source = string(recipe.SourceLocal)
	}
	if !recipe.Source(m.Source).Valid() {
		m.Source = string(recipe.SourceLocal)
	}
	return m
}

func (m *RecipeModel) toRow() recipe.LocalRow {
	row := recipe.LocalRow{
		ID:            m.ID,
		Source:        m.Source,
		Name:          m.Name,
		Category:      m.Category,
		Origin:        m.Origin,
		Ingredients:   decodeList(m.Ingredients),
		Instructions:  m.Instructions,
		EstimatedTime: m.EstimatedTime,
		Difficulty:    m.Difficulty,
		ImageURL:      m.ImageURL,
		Tags:          decodeList(m.Tags),
		Active:        m.Active,
		Verified:      m.Verified,
		CreatedAt:     m.CreatedAt,
	}
	if m.ExternalID != nil {
		row.ExternalID = *m.ExternalID
	}
	return row
}

func newFavoriteModel(f recipe.Favorite) *FavoriteModel {
	return &FavoriteModel{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		RecipeID:   f.RecipeID,
		Note:       f.Note,
		Rating:     f.Rating,
		Tags:       encodeList(f.Tags),
		Collection: f.Collection,
	}
}

func (m *FavoriteModel) toFavorite() recipe.Favorite {
	f := recipe.Favorite{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		RecipeID:   m.RecipeID,
		Note:       m.Note,
		Rating:     m.Rating,
		Tags:       decodeList(m.Tags),
		Collection: m.Collection,
		CreatedAt:  m.CreatedAt,
	}
	if m.Recipe != nil {
		r, err := recipe.Normalize(m.Recipe.toRow(), m.CreatedAt)
		if err == nil {
			f.Recipe = &r
		}
	}
	return f
}
