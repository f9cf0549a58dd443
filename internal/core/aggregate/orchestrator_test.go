package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/ai/service"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/source"
	"recipe-aggregator/internal/infrastructure/config"
)

// fakeAdapter 記錄呼叫次數並回傳固定結果
type fakeAdapter struct {
	kind    recipe.Source
	results []recipe.Recipe
	err     error
	byID    map[string]recipe.Recipe

	mu          sync.Mutex
	calls       []string
	callers     []string
	text        string
	ingredients []string
}

func (f *fakeAdapter) record(ctx context.Context, op string) ([]recipe.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	f.callers = append(f.callers, source.CallerFrom(ctx))
	return f.results, f.err
}

func (f *fakeAdapter) Kind() recipe.Source { return f.kind }

func (f *fakeAdapter) SearchByText(ctx context.Context, text string, limit int) ([]recipe.Recipe, error) {
	return f.record(ctx, "text")
}

func (f *fakeAdapter) SearchByIngredients(ctx context.Context, ingredients []string, limit int) ([]recipe.Recipe, error) {
	return f.record(ctx, "ingredients")
}

func (f *fakeAdapter) SearchByTextAndIngredients(ctx context.Context, text string, ingredients []string, limit int) ([]recipe.Recipe, error) {
	f.mu.Lock()
	f.text, f.ingredients = text, ingredients
	f.mu.Unlock()
	return f.record(ctx, "text_ingredients")
}

func (f *fakeAdapter) SearchByCategory(ctx context.Context, category string, limit int) ([]recipe.Recipe, error) {
	return f.record(ctx, "category")
}

func (f *fakeAdapter) SearchByOrigin(ctx context.Context, origin string, limit int) ([]recipe.Recipe, error) {
	return f.record(ctx, "origin")
}

func (f *fakeAdapter) LookupByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePersister struct {
	next  int64
	seen  map[string]int64
	err   error
	calls int
}

func (p *fakePersister) MaybePersist(ctx context.Context, r recipe.Recipe) (int64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	if p.seen == nil {
		p.seen = map[string]int64{}
	}
	if id, ok := p.seen[r.DedupKey()]; ok {
		return id, nil
	}
	p.next++
	p.seen[r.DedupKey()] = 100 + p.next
	return 100 + p.next, nil
}

func testConfig() config.AggregatorConfig {
	return config.AggregatorConfig{
		SufficiencyThreshold: 2,
		DefaultLimit:         20,
		MaxLimit:             50,
		AutoPersist:          true,
		EnableGenerative:     true,
	}
}

func localRecipe(id int64, name string, ingredients ...string) recipe.Recipe {
	return recipe.Recipe{ID: id, Name: name, Ingredients: ingredients, Source: recipe.SourceLocal, Active: true}
}

func catalogRecipe(externalID, name string, ingredients ...string) recipe.Recipe {
	return recipe.Recipe{ExternalID: externalID, Name: name, Ingredients: ingredients, Source: recipe.SourceCatalog}
}

func generatedRecipe(externalID, name string) recipe.Recipe {
	return recipe.Recipe{ExternalID: externalID, Name: name, Source: recipe.SourceGenerated}
}

func TestSearch_LocalSufficientSkipsOtherSources(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal, results: []recipe.Recipe{
		localRecipe(1, "Frango Assado", "frango"),
		localRecipe(2, "Frango com Arroz", "frango", "arroz"),
	}}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog}
	generative := &fakeAdapter{kind: recipe.SourceGenerated}

	o := NewOrchestrator(testConfig(), local, catalog, generative, &fakePersister{}, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "frango"})
	require.NoError(t, err)

	assert.Equal(t, 1, local.callCount())
	assert.Zero(t, catalog.callCount())
	assert.Zero(t, generative.callCount())
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "local", result.Source)
}

func TestSearch_SupplementQueriesCatalogAnyway(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal, results: []recipe.Recipe{
		localRecipe(1, "Frango Assado"),
		localRecipe(2, "Frango Frito"),
	}}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, results: []recipe.Recipe{
		catalogRecipe("themealdb-1", "Frango Tikka"),
	}}
	generative := &fakeAdapter{kind: recipe.SourceGenerated}

	o := NewOrchestrator(testConfig(), local, catalog, generative, &fakePersister{}, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "frango", Supplement: true})
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.callCount())
	assert.Zero(t, generative.callCount())
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, "mixed", result.Source)
}

func TestSearch_FallsThroughToGenerative(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, results: []recipe.Recipe{
		catalogRecipe("themealdb-1", "Frango Tikka", "frango"),
	}}
	generative := &fakeAdapter{kind: recipe.SourceGenerated, results: []recipe.Recipe{
		generatedRecipe("generated-a", "Frango Cremoso"),
	}}

	o := NewOrchestrator(testConfig(), local, catalog, generative, &fakePersister{}, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Ingredients: []string{"frango"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ingredients"}, generative.calls)
	assert.Equal(t, []string{"u1"}, generative.callers)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "catalog", result.Source)
	assert.Equal(t, recipe.SourceCatalog, result.Recipes[0].Source)
}

func TestSearch_GenerativeFallbackIsDefault(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog}
	generative := &fakeAdapter{kind: recipe.SourceGenerated, results: []recipe.Recipe{
		generatedRecipe("generated-b", "Bolo de Fubá"),
	}}

	o := NewOrchestrator(testConfig(), local, catalog, generative, nil, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "bolo"})
	require.NoError(t, err)
	assert.Equal(t, 1, generative.callCount())
	assert.Equal(t, 1, result.Total)
}

func TestSearch_GenerativeFallbackCanBeDisabled(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog}
	generative := &fakeAdapter{kind: recipe.SourceGenerated}

	// 單次請求關閉
	o := NewOrchestrator(testConfig(), local, catalog, generative, nil, nil)
	_, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "bolo", SkipGenerated: true})
	require.NoError(t, err)
	assert.Zero(t, generative.callCount())

	// 全域關閉
	cfg := testConfig()
	cfg.EnableGenerative = false
	o = NewOrchestrator(cfg, local, catalog, generative, nil, nil)
	_, err = o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "bolo"})
	require.NoError(t, err)
	assert.Zero(t, generative.callCount())
}

func TestSearch_TextAndIngredientsReachEverySource(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog}
	generative := &fakeAdapter{kind: recipe.SourceGenerated}

	o := NewOrchestrator(testConfig(), local, catalog, generative, nil, nil)
	_, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "sopa", Ingredients: []string{"frango"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"text_ingredients"}, local.calls)
	assert.Equal(t, []string{"text_ingredients"}, catalog.calls)
	assert.Equal(t, []string{"text_ingredients"}, generative.calls)
	assert.Equal(t, []string{"frango"}, local.ingredients)
	assert.Equal(t, "sopa", local.text)
}

func TestSearch_AllSourcesFailingIsEmptySuccess(t *testing.T) {
	boom := errors.New("upstream down")
	local := &fakeAdapter{kind: recipe.SourceLocal, err: boom}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, err: boom}
	generative := &fakeAdapter{kind: recipe.SourceGenerated, err: &service.QuotaExceededError{
		Used: 3, Limit: 3, ResetAt: time.Now().Add(time.Hour),
	}}

	o := NewOrchestrator(testConfig(), local, catalog, generative, &fakePersister{}, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "frango"})
	require.NoError(t, err)

	assert.Equal(t, 1, generative.callCount())
	assert.Empty(t, result.Recipes)
	assert.Zero(t, result.Total)
	assert.Equal(t, "local", result.Source)
}

func TestSearch_InvalidQueryRejectedBeforeAnySource(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog}

	o := NewOrchestrator(testConfig(), local, catalog, nil, nil, nil)

	tests := []recipe.Query{
		{Caller: "u1"},
		{Caller: "u1", Ingredients: []string{" ", ""}},
		{Caller: "u1", Category: "Frango", Origin: "Indiana"},
		{Text: "frango"},
	}
	for _, q := range tests {
		_, err := o.Search(context.Background(), q)
		require.ErrorIs(t, err, recipe.ErrInvalidQuery)
	}
	assert.Zero(t, local.callCount())
	assert.Zero(t, catalog.callCount())
}

func TestSearch_DeduplicatesPersistedCatalogRows(t *testing.T) {
	persisted := catalogRecipe("themealdb-52977", "Corba")
	persisted.ID = 9
	local := &fakeAdapter{kind: recipe.SourceLocal, results: []recipe.Recipe{persisted}}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, results: []recipe.Recipe{
		catalogRecipe("themealdb-52977", "Corba"),
		catalogRecipe("themealdb-52978", "Kumpir"),
	}}

	p := &fakePersister{}
	o := NewOrchestrator(testConfig(), local, catalog, nil, p, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Category: "Acompanhamento"})
	require.NoError(t, err)

	require.Len(t, result.Recipes, 2)
	ids := map[string]int64{}
	for _, r := range result.Recipes {
		ids[r.ExternalID] = r.ID
	}
	assert.Equal(t, int64(9), ids["themealdb-52977"])
	assert.Equal(t, int64(101), ids["themealdb-52978"])
	assert.Equal(t, 1, p.calls)
}

func TestSearch_PersistFailureKeepsResults(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, results: []recipe.Recipe{
		catalogRecipe("themealdb-1", "Frango Tikka"),
	}}

	o := NewOrchestrator(testConfig(), local, catalog, nil, &fakePersister{err: errors.New("db down")}, nil)
	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "frango"})
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	assert.Zero(t, result.Recipes[0].ID)
}

func TestSearch_AutoPersistDisabled(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, results: []recipe.Recipe{
		catalogRecipe("themealdb-1", "Frango Tikka"),
	}}
	cfg := testConfig()
	cfg.AutoPersist = false
	p := &fakePersister{}

	o := NewOrchestrator(cfg, local, catalog, nil, p, nil)
	_, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "frango"})
	require.NoError(t, err)
	assert.Zero(t, p.calls)
}

func TestSearch_LimitIsClampedAndApplied(t *testing.T) {
	var rows []recipe.Recipe
	for i := 1; i <= 5; i++ {
		rows = append(rows, localRecipe(int64(i), "Bolo"))
	}
	local := &fakeAdapter{kind: recipe.SourceLocal, results: rows}

	cfg := testConfig()
	cfg.DefaultLimit = 3
	cfg.MaxLimit = 4
	o := NewOrchestrator(cfg, local, nil, nil, nil, nil)

	result, err := o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "bolo"})
	require.NoError(t, err)
	assert.Len(t, result.Recipes, 3)
	assert.Equal(t, 3, result.Filters.Limit)

	result, err = o.Search(context.Background(), recipe.Query{Caller: "u1", Text: "bolo", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, result.Recipes, 4)
	assert.Equal(t, 4, result.Filters.Limit)
}

func TestSearch_DispatchesByFilter(t *testing.T) {
	tests := []struct {
		query recipe.Query
		op    string
	}{
		{recipe.Query{Caller: "u", Text: "bolo", Ingredients: []string{"ovo"}}, "text_ingredients"},
		{recipe.Query{Caller: "u", Text: "bolo"}, "text"},
		{recipe.Query{Caller: "u", Ingredients: []string{"ovo"}}, "ingredients"},
		{recipe.Query{Caller: "u", Category: "Sobremesa"}, "category"},
		{recipe.Query{Caller: "u", Origin: "Italiana"}, "origin"},
	}
	for _, tt := range tests {
		local := &fakeAdapter{kind: recipe.SourceLocal}
		o := NewOrchestrator(testConfig(), local, nil, nil, nil, nil)
		_, err := o.Search(context.Background(), tt.query)
		require.NoError(t, err)
		assert.Equal(t, []string{tt.op}, local.calls)
	}
}

func TestLookup(t *testing.T) {
	local := &fakeAdapter{kind: recipe.SourceLocal, byID: map[string]recipe.Recipe{"7": localRecipe(7, "Bolo")}}
	catalog := &fakeAdapter{kind: recipe.SourceCatalog, byID: map[string]recipe.Recipe{
		"themealdb-52977": catalogRecipe("themealdb-52977", "Corba"),
	}}
	p := &fakePersister{}
	o := NewOrchestrator(testConfig(), local, catalog, nil, p, nil)
	ctx := context.Background()

	r, err := o.Lookup(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "Bolo", r.Name)

	r, err = o.Lookup(ctx, "themealdb-52977")
	require.NoError(t, err)
	assert.Equal(t, "Corba", r.Name)
	assert.Equal(t, int64(101), r.ID)

	_, err = o.Lookup(ctx, "8")
	assert.ErrorIs(t, err, recipe.ErrNotFound)
	_, err = o.Lookup(ctx, "generated-abc")
	assert.ErrorIs(t, err, recipe.ErrNotFound)
	_, err = o.Lookup(ctx, " ")
	assert.ErrorIs(t, err, recipe.ErrInvalidQuery)
}
