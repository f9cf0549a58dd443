package favorite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/api/middleware"
	favoriteCore "recipe-aggregator/internal/core/favorite"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFavorites struct {
	items map[int64]recipe.Favorite
	next  int64
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{items: map[int64]recipe.Favorite{}, next: 1}
}

func (f *fakeFavorites) Create(ctx context.Context, owner string, in favoriteCore.CreateInput) (*recipe.Favorite, error) {
	if in.RecipeID == 0 && in.Recipe == nil {
		return nil, common.NewValidationError("recipe_id or recipe is required")
	}
	fav := recipe.Favorite{ID: f.next, OwnerID: owner, RecipeID: in.RecipeID, Note: in.Note, Rating: in.Rating, Collection: in.Collection}
	f.items[fav.ID] = fav
	f.next++
	return &fav, nil
}

func (f *fakeFavorites) List(ctx context.Context, owner, collection string) ([]recipe.Favorite, error) {
	var out []recipe.Favorite
	for _, fav := range f.items {
		if fav.OwnerID == owner && (collection == "" || fav.Collection == collection) {
			out = append(out, fav)
		}
	}
	return out, nil
}

func (f *fakeFavorites) Update(ctx context.Context, owner string, id int64, in favoriteCore.UpdateInput) (*recipe.Favorite, error) {
	fav, ok := f.items[id]
	if !ok || fav.OwnerID != owner {
		return nil, recipe.ErrFavoriteNotFound
	}
	if in.Note != nil {
		fav.Note = *in.Note
	}
	f.items[id] = fav
	return &fav, nil
}

func (f *fakeFavorites) Delete(ctx context.Context, owner string, id int64) error {
	fav, ok := f.items[id]
	if !ok || fav.OwnerID != owner {
		return recipe.ErrFavoriteNotFound
	}
	delete(f.items, id)
	return nil
}

func newRouter(f Favorites) *gin.Engine {
	h := NewHandler(f)
	r := gin.New()
	r.Use(middleware.Caller())
	r.GET("/favorites", h.List)
	r.POST("/favorites", h.Create)
	r.PATCH("/favorites/:id", h.Update)
	r.DELETE("/favorites/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFavorites_RequireUser(t *testing.T) {
	r := newRouter(newFakeFavorites())

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/favorites", ""},
		{http.MethodPost, "/favorites", `{"recipe_id":1}`},
		{http.MethodPatch, "/favorites/1", `{}`},
		{http.MethodDelete, "/favorites/1", ""},
	} {
		w := do(r, tc.method, tc.path, tc.body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.method+" "+tc.path)
	}
}

func TestFavorites_Lifecycle(t *testing.T) {
	f := newFakeFavorites()
	r := newRouter(f)

	w := do(r, http.MethodPost, "/favorites", `{"recipe_id":10,"note":"domingo","rating":5,"collection":"almoco"}`, "ana")
	require.Equal(t, http.StatusCreated, w.Code)
	var created recipe.Favorite
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ana", created.OwnerID)
	assert.Equal(t, int64(10), created.RecipeID)

	w = do(r, http.MethodGet, "/favorites?collection=almoco", "", "ana")
	require.Equal(t, http.StatusOK, w.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	w = do(r, http.MethodPatch, "/favorites/1", `{"note":"sábado"}`, "ana")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sábado")

	// 其他使用者看不到也改不到
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/favorites/1", "", "bia").Code)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/favorites/1", "", "ana").Code)
	assert.Empty(t, f.items)
}

func TestFavorites_EmptyListIsArray(t *testing.T) {
	r := newRouter(newFakeFavorites())

	w := do(r, http.MethodGet, "/favorites", "", "ana")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"favorites":[],"total":0}`, w.Body.String())
}

func TestFavorites_BadInput(t *testing.T) {
	r := newRouter(newFakeFavorites())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/favorites", `{`, "ana").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/favorites", `{}`, "ana").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/favorites/abc", `{}`, "ana").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/favorites/0", "", "ana").Code)
}
