package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/recipe"
)

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	tr, err := New()
	require.NoError(t, err)
	return tr
}

func TestReplace_LongestPhraseWins(t *testing.T) {
	table := NewTable(map[string]string{
		"pepper":       "pimenta",
		"black pepper": "pimenta-do-reino",
		"black":        "preto",
	})

	assert.Equal(t, "sal e pimenta-do-reino", table.Replace("sal e black pepper"))
	assert.Equal(t, "preto e pimenta", table.Replace("black e pepper"))
}

func TestReplace_PhraseMatchesAnyWhitespaceRun(t *testing.T) {
	table := NewTable(map[string]string{
		"pepper":       "pimenta",
		"black pepper": "pimenta-do-reino",
		"black":        "preto",
	})

	assert.Equal(t, "sal e pimenta-do-reino", table.Replace("sal e black  pepper"))
	assert.Equal(t, "pimenta-do-reino moída", table.Replace("black\npepper moída"))
	assert.Equal(t, "Pimenta-do-reino", table.Replace("Black \t pepper"))
	assert.Equal(t, "preto ", table.Replace("black "))
}

func TestReplace_WordBoundaries(t *testing.T) {
	table := NewTable(map[string]string{"oil": "óleo", "pan": "frigideira"})

	assert.Equal(t, "boil the óleo", table.Replace("boil the oil"))
	assert.Equal(t, "frigideira, pancake, frigideira.", table.Replace("pan, pancake, pan."))
	assert.Equal(t, "jalapeño", NewTable(map[string]string{"jalape": "x"}).Replace("jalapeño"))
}

func TestReplace_PreservesCapitalization(t *testing.T) {
	table := NewTable(map[string]string{"chicken breast": "peito de frango"})

	assert.Equal(t, "Peito de frango grelhado", table.Replace("Chicken Breast grelhado"))
	assert.Equal(t, "2 peito de frango", table.Replace("2 chicken breast"))
}

func TestReplace_ReplacedSpanIsNotRescanned(t *testing.T) {
	table := NewTable(map[string]string{"a": "b", "b": "c"})
	assert.Equal(t, "b c", table.Replace("a b"))
}

func TestDictionary_EverySourcePhraseTranslates(t *testing.T) {
	tr := newTestTranslator(t)
	dict := tr.Dictionary()

	for name, table := range map[string]*Table{
		"categories":  dict.Categories,
		"origins":     dict.Origins,
		"ingredients": dict.Ingredients,
		"units":       dict.Units,
		"verbs":       dict.Verbs,
	} {
		for source, target := range table.Pairs() {
			out := table.Replace("x " + source + " y")
			assert.Contains(t, out, target, "%s: %q", name, source)
			if !strings.Contains(strings.ToLower(target), source) {
				assert.NotContains(t, strings.ToLower(out), " "+source+" ", "%s: %q", name, source)
			}
		}
	}
}

func TestDictionary_TranslationIsIdempotent(t *testing.T) {
	tr := newTestTranslator(t)

	for _, table := range []*Table{tr.name, tr.line, tr.instruction} {
		for source, target := range table.Pairs() {
			once := table.Replace(source)
			assert.Equal(t, once, table.Replace(once), "%q", source)
			assert.Equal(t, target, table.Replace(target), "%q", target)
		}
	}
}

func TestTranslateRecipe(t *testing.T) {
	tr := newTestTranslator(t)
	r := recipe.Recipe{
		Name:         "Chicken Curry",
		Category:     "Chicken",
		Origin:       "Indian",
		Ingredients:  []string{"2 tbsp olive oil", "1 large onion", "500g chicken breast", "Salt to taste"},
		Instructions: "Heat the olive oil in a pan. Add the onion and cook for 5 minutes.",
		Tags:         []string{"Curry", "Spicy"},
	}

	got := tr.TranslateRecipe(r)

	assert.Equal(t, "Frango Curry", got.Name)
	assert.Equal(t, "Frango", got.Category)
	assert.Equal(t, "Indiana", got.Origin)
	assert.Equal(t, []string{"2 colher de sopa azeite", "1 grande cebola", "500g peito de frango", "Sal a gosto"}, got.Ingredients)
	assert.Equal(t, "Aqueça the azeite in a frigideira. Adicione the cebola e cozinhe for 5 minutos.", got.Instructions)
	assert.Equal(t, []string{"Curry", "Spicy"}, got.Tags)

	// 原食譜不被修改
	assert.Equal(t, "Chicken", r.Category)

	again := tr.TranslateRecipe(got)
	assert.Equal(t, got, again)
}

func TestTranslateQuery(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, []string{"chicken"}, tr.TranslateQuery("Frango"))
	assert.Equal(t, []string{"rice"}, tr.TranslateQuery("arroz"))
	assert.Equal(t, []string{"dessert"}, tr.TranslateQuery("sobremesa"))
	assert.Equal(t, []string{"minced beef", "beef"}, tr.TranslateQuery("carne moída"))
	assert.Equal(t, []string{"cake"}, tr.TranslateQuery("bolo de cenoura"))
	assert.Equal(t, []string{"quiche"}, tr.TranslateQuery("quiche"))
	assert.Nil(t, tr.TranslateQuery("  "))
}

func TestCategoryAndOriginToSource(t *testing.T) {
	tr := newTestTranslator(t)

	got, ok := tr.CategoryToSource("Sobremesa")
	require.True(t, ok)
	assert.Equal(t, "Dessert", got)

	got, ok = tr.CategoryToSource("frutos do mar")
	require.True(t, ok)
	assert.Equal(t, "Seafood", got)

	got, ok = tr.CategoryToSource("seafood")
	require.True(t, ok)
	assert.Equal(t, "Seafood", got)

	got, ok = tr.OriginToSource("Britânica")
	require.True(t, ok)
	assert.Equal(t, "British", got)

	_, ok = tr.OriginToSource("Atlântida")
	assert.False(t, ok)
}

func TestIngredientToSource(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, "chicken", tr.IngredientToSource("frango"))
	assert.Equal(t, "garlic", tr.IngredientToSource("Alho"))
	assert.Equal(t, "rice", tr.IngredientToSource("rice"))
	assert.Equal(t, "quinoa", tr.IngredientToSource("quinoa"))
}

func TestLooksLikeSourceLanguage(t *testing.T) {
	assert.True(t, LooksLikeSourceLanguage("Heat the oil in a pan and add the chicken. Cook until golden."))
	assert.False(t, LooksLikeSourceLanguage("Aqueça o óleo na panela e adicione o frango. Cozinhe até dourar."))
	assert.False(t, LooksLikeSourceLanguage(""))
	assert.True(t, RecipeLooksLikeSourceLanguage(recipe.Recipe{Name: "Beef stew", Instructions: "Cook the beef with the water for 2 hours."}))
}

func TestLoadDictionary_Invalid(t *testing.T) {
	_, err := LoadDictionary([]byte("categories: [not, a, map]"))
	require.Error(t, err)

	_, err = LoadDictionary([]byte("origins:\n  thai: Tailandesa\n"))
	require.Error(t, err)
}
