package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"recipe-aggregator/internal/core/recipe"
)

// FavoriteRepository favorites 資料表的存取，所有操作都限定擁有者
type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Create 寫入收藏並回填 id 與建立時間
func (r *FavoriteRepository) Create(ctx context.Context, f *recipe.Favorite) error {
	m := newFavoriteModel(*f)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	f.ID = m.ID
	f.CreatedAt = m.CreatedAt
	return nil
}

// List 依建立時間倒序列出收藏；collection 為空時不過濾
func (r *FavoriteRepository) List(ctx context.Context, owner, collection string) ([]recipe.Favorite, error) {
	q := r.db.WithContext(ctx).Preload("Recipe").Where("owner_id = ?", owner)
	if collection != "" {
		q = q.Where("collection = ?", collection)
	}

	var models []FavoriteModel
	if err := q.Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}

	favorites := make([]recipe.Favorite, 0, len(models))
	for i := range models {
		favorites = append(favorites, models[i].toFavorite())
	}
	return favorites, nil
}

// Get 找不到時回傳 recipe.ErrFavoriteNotFound
func (r *FavoriteRepository) Get(ctx context.Context, owner string, id int64) (*recipe.Favorite, error) {
	var m FavoriteModel
	err := r.db.WithContext(ctx).
		Preload("Recipe").
		Where("id = ? AND owner_id = ?", id, owner).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrFavoriteNotFound
		}
		return nil, err
	}
	f := m.toFavorite()
	return &f, nil
}

// Update 只更新可編輯欄位
func (r *FavoriteRepository) Update(ctx context.Context, f recipe.Favorite) error {
	m := newFavoriteModel(f)
	res := r.db.WithContext(ctx).
		Model(&FavoriteModel{}).
		Where("id = ? AND owner_id = ?", f.ID, f.OwnerID).
		Updates(map[string]interface{}{
			"note":       m.Note,
			"rating":     m.Rating,
			"tags":       m.Tags,
			"collection": m.Collection,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return recipe.ErrFavoriteNotFound
	}
	return nil
}

// Delete 刪除收藏，不影響食譜本身
func (r *FavoriteRepository) Delete(ctx context.Context, owner string, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&FavoriteModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return recipe.ErrFavoriteNotFound
	}
	return nil
}
