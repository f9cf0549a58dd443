package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
)

const corbaJSON = `{"meals":[{"idMeal":"52977","strMeal":"Corba","strCategory":"Side","strArea":"Turkish",
"strInstructions":"Pick through your lentils.","strMealThumb":"https://img/corba.jpg","strTags":"Soup",
"strIngredient1":"Lentils","strMeasure1":"1 cup","strIngredient2":"Onion","strMeasure2":"1 large","strIngredient3":"","strMeasure3":""}]}`

func testConfig(url string) config.CatalogConfig {
	return config.CatalogConfig{
		BaseURL:          url,
		Timeout:          time.Second,
		MaxConcurrency:   3,
		BreakerTimeout:   time.Minute,
		BreakerInterval:  time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestClient_SearchAndLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search.php":
			assert.Equal(t, "corba", r.URL.Query().Get("s"))
			_, _ = w.Write([]byte(corbaJSON))
		case "/lookup.php":
			if r.URL.Query().Get("i") == "52977" {
				_, _ = w.Write([]byte(corbaJSON))
				return
			}
			_, _ = w.Write([]byte(`{"meals":null}`))
		case "/filter.php":
			assert.Equal(t, "chicken_breast", r.URL.Query().Get("i"))
			_, _ = w.Write([]byte(`{"meals":[{"idMeal":"1","strMeal":"A","strMealThumb":"t"}]}`))
		case "/categories.php":
			_, _ = w.Write([]byte(`{"categories":[{"idCategory":"1","strCategory":"Beef"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	ctx := context.Background()

	meals, err := c.SearchByName(ctx, "corba")
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, []string{"1 cup Lentils", "1 large Onion"}, meals[0].IngredientLines())

	meal, err := c.LookupByID(ctx, "52977")
	require.NoError(t, err)
	require.NotNil(t, meal)
	assert.Equal(t, "Corba", meal.Name)

	meal, err = c.LookupByID(ctx, "0")
	require.NoError(t, err)
	assert.Nil(t, meal)

	stubs, err := c.FilterByIngredient(ctx, "chicken breast")
	require.NoError(t, err)
	assert.Equal(t, []MealStub{{ID: "1", Name: "A", Thumb: "t"}}, stubs)

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Beef", cats[0].Name)
}

func TestClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).SearchByName(context.Background(), "x")
	require.ErrorIs(t, err, recipe.ErrMalformedRecord)
}

func TestClient_TimeoutIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	start := time.Now()
	_, err := NewClient(cfg, nil).SearchByName(context.Background(), "x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.SearchByName(ctx, "x")
		require.Error(t, err)
	}

	_, err := c.SearchByName(ctx, "x")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_LookupManyKeepsOrderAndSkipsFailures(t *testing.T) {
	var inFlight, maxInFlight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		id := r.URL.Query().Get("i")
		if id == "bad" {
			_, _ = w.Write([]byte(`{"meals":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"meals":[{"idMeal":"` + id + `","strMeal":"Meal ` + id + `"}]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	meals := c.LookupMany(context.Background(), []string{"1", "2", "bad", "3", "4", "5"})

	ids := make([]string, 0, len(meals))
	for _, m := range meals {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(3))
}
