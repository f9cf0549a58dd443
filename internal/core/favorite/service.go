package favorite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

var validate = validator.New()

// Repository 收藏的持久化
type Repository interface {
	Create(ctx context.Context, f *recipe.Favorite) error
	List(ctx context.Context, owner, collection string) ([]recipe.Favorite, error)
	Get(ctx context.Context, owner string, id int64) (*recipe.Favorite, error)
	Update(ctx context.Context, f recipe.Favorite) error
	Delete(ctx context.Context, owner string, id int64) error
}

// RecipeStore 收藏需要的食譜讀寫能力
type RecipeStore interface {
	FindRecipeByID(ctx context.Context, id int64) (*recipe.LocalRow, error)
	CreateRecipe(ctx context.Context, r recipe.Recipe) (int64, error)
}

// Persister 外部食譜走同一個去重閘道
type Persister interface {
	MaybePersist(ctx context.Context, r recipe.Recipe) (int64, error)
}

// RecipeInput 收藏時一併建立的食譜
type RecipeInput struct {
	Name          string   `json:"name" validate:"required,max=255"`
	Category      string   `json:"category" validate:"max=128"`
	Origin        string   `json:"origin" validate:"max=128"`
	Ingredients   []string `json:"ingredients" validate:"max=50,dive,max=255"`
	Instructions  string   `json:"instructions" validate:"max=20000"`
	EstimatedTime string   `json:"estimated_time" validate:"max=32"`
	Difficulty    string   `json:"difficulty" validate:"max=16"`
	ImageURL      string   `json:"image_url" validate:"omitempty,url,max=512"`
	Tags          []string `json:"tags" validate:"max=20,dive,max=64"`
	Source        string   `json:"source" validate:"omitempty,oneof=local catalog generated"`
	ExternalID    string   `json:"external_id" validate:"max=128"`
}

// CreateInput 新增收藏：recipe_id 或完整食譜二選一
type CreateInput struct {
	RecipeID   int64        `json:"recipe_id" validate:"min=0"`
	Recipe     *RecipeInput `json:"recipe"`
	Note       string       `json:"note" validate:"max=1000"`
	Rating     int          `json:"rating" validate:"min=0,max=5"`
	Tags       []string     `json:"tags" validate:"max=20,dive,max=64"`
	Collection string       `json:"collection" validate:"max=128"`
}

// UpdateInput 只更新有給的欄位
type UpdateInput struct {
	Note       *string   `json:"note" validate:"omitempty,max=1000"`
	Rating     *int      `json:"rating" validate:"omitempty,min=0,max=5"`
	Tags       *[]string `json:"tags" validate:"omitempty,max=20,dive,max=64"`
	Collection *string   `json:"collection" validate:"omitempty,max=128"`
}

// Service 使用者收藏
type Service struct {
	repo      Repository
	recipes   RecipeStore
	persister Persister
	now       func() time.Time
}

// NewService 創建收藏服務
func NewService(repo Repository, recipes RecipeStore, persister Persister) *Service {
	return &Service{repo: repo, recipes: recipes, persister: persister, now: time.Now}
}

// Create 新增收藏；沒有 recipe_id 時先建立食譜
func (s *Service) Create(ctx context.Context, owner string, in CreateInput) (*recipe.Favorite, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, common.NewValidationError("owner is required")
	}
	if err := validate.Struct(in); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if in.RecipeID == 0 && in.Recipe == nil {
		return nil, common.NewValidationError("recipe_id or recipe is required")
	}
	if in.RecipeID != 0 && in.Recipe != nil {
		return nil, common.NewValidationError("recipe_id and recipe are mutually exclusive")
	}

	recipeID := in.RecipeID
	if recipeID != 0 {
		if _, err := s.recipes.FindRecipeByID(ctx, recipeID); err != nil {
			return nil, err
		}
	} else {
		id, err := s.createRecipe(ctx, *in.Recipe)
		if err != nil {
			return nil, err
		}
		recipeID = id
	}

	f := &recipe.Favorite{
		OwnerID:    owner,
		RecipeID:   recipeID,
		Note:       strings.TrimSpace(in.Note),
		Rating:     in.Rating,
		Tags:       cleanTags(in.Tags),
		Collection: strings.TrimSpace(in.Collection),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create favorite: %w", err)
	}

	common.LogInfo("新增收藏",
		zap.String("owner", owner),
		zap.Int64("favorite_id", f.ID),
		zap.Int64("recipe_id", recipeID),
	)
	return s.repo.Get(ctx, owner, f.ID)
}

// createRecipe 外部來源且有 external_id 的食譜走去重閘道，其餘建立為新的本地食譜
func (s *Service) createRecipe(ctx context.Context, in RecipeInput) (int64, error) {
	source := recipe.Source(in.Source)
	if source == "" {
		source = recipe.SourceLocal
	}

	draft := recipe.LocalRow{
		ExternalID:    strings.TrimSpace(in.ExternalID),
		Source:        string(source),
		Name:          strings.TrimSpace(in.Name),
		Category:      in.Category,
		Origin:        in.Origin,
		Ingredients:   in.Ingredients,
		Instructions:  in.Instructions,
		EstimatedTime: in.EstimatedTime,
		Difficulty:    in.Difficulty,
		ImageURL:      in.ImageURL,
		Tags:          cleanTags(in.Tags),
		Active:        true,
	}
	r, err := recipe.Normalize(draft, s.now())
	if err != nil {
		return 0, err
	}

	if r.Source.External() && r.ExternalID != "" && s.persister != nil {
		return s.persister.MaybePersist(ctx, r)
	}
	return s.recipes.CreateRecipe(ctx, r)
}

// List 列出擁有者的收藏
func (s *Service) List(ctx context.Context, owner, collection string) ([]recipe.Favorite, error) {
	return s.repo.List(ctx, owner, strings.TrimSpace(collection))
}

// Update 更新備註、評分、標籤或分類
func (s *Service) Update(ctx context.Context, owner string, id int64, in UpdateInput) (*recipe.Favorite, error) {
	if err := validate.Struct(in); err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	f, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if in.Note != nil {
		f.Note = strings.TrimSpace(*in.Note)
	}
	if in.Rating != nil {
		f.Rating = *in.Rating
	}
	if in.Tags != nil {
		f.Tags = cleanTags(*in.Tags)
	}
	if in.Collection != nil {
		f.Collection = strings.TrimSpace(*in.Collection)
	}

	if err := s.repo.Update(ctx, *f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete 刪除收藏
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		if !errors.Is(err, recipe.ErrFavoriteNotFound) {
			common.LogError("刪除收藏失敗", zap.String("owner", owner), zap.Int64("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := recipe.Fold(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
