package favorite

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"recipe-aggregator/internal/api/handlers"
	"recipe-aggregator/internal/api/middleware"
	favoriteCore "recipe-aggregator/internal/core/favorite"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// Favorites 收藏能力
type Favorites interface {
	Create(ctx context.Context, owner string, in favoriteCore.CreateInput) (*recipe.Favorite, error)
	List(ctx context.Context, owner, collection string) ([]recipe.Favorite, error)
	Update(ctx context.Context, owner string, id int64, in favoriteCore.UpdateInput) (*recipe.Favorite, error)
	Delete(ctx context.Context, owner string, id int64) error
}

// ListResponse 收藏列表
type ListResponse struct {
	Favorites []recipe.Favorite `json:"favorites"`
	Total     int               `json:"total"`
}

// Handler 收藏處理程序；需要已驗證的使用者
type Handler struct {
	favorites Favorites
}

func NewHandler(f Favorites) *Handler {
	return &Handler{favorites: f}
}

func owner(c *gin.Context) (string, bool) {
	caller, metered := middleware.CallerFrom(c)
	if metered {
		common.WriteError(c, common.ErrUnauthorized, "X-User-ID header is required")
		return "", false
	}
	return caller, true
}

func favoriteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.WriteError(c, common.ErrInvalidRequest, "invalid favorite id")
		return 0, false
	}
	return id, true
}

// List GET /favorites?collection=
func (h *Handler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	favorites, err := h.favorites.List(c.Request.Context(), ownerID, c.Query("collection"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	if favorites == nil {
		favorites = []recipe.Favorite{}
	}
	c.JSON(http.StatusOK, ListResponse{Favorites: favorites, Total: len(favorites)})
}

// Create POST /favorites
func (h *Handler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in favoriteCore.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	f, err := h.favorites.Create(c.Request.Context(), ownerID, in)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Update PATCH /favorites/:id
func (h *Handler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := favoriteID(c)
	if !ok {
		return
	}
	var in favoriteCore.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	f, err := h.favorites.Update(c.Request.Context(), ownerID, id, in)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Delete DELETE /favorites/:id
func (h *Handler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := favoriteID(c)
	if !ok {
		return
	}
	if err := h.favorites.Delete(c.Request.Context(), ownerID, id); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
