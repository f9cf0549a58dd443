package recipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreText_EmptyQueryIsNeutral(t *testing.T) {
	require.Equal(t, NeutralScore, ScoreText(Recipe{Name: "Frango assado"}, ""))
	require.Equal(t, NeutralScore, ScoreText(Recipe{}, "   "))
}

func TestScoreText_Weights(t *testing.T) {
	r := Recipe{
		Name:        "Frango com Arroz",
		Category:    "Frango",
		Origin:      "Brasileira",
		Tags:        []string{"frango", "jantar"},
		Ingredients: []string{"500 g frango", "1 xícara arroz"},
	}

	require.Equal(t, 85, ScoreText(r, "frango"))
	require.Equal(t, 50, ScoreText(r, "arroz"))
	require.Equal(t, 15, ScoreText(r, "brasil"))
	require.Equal(t, 0, ScoreText(r, "chocolate"))
}

func TestScoreText_IgnoresCaseAndAccents(t *testing.T) {
	r := Recipe{Name: "Pão de Queijo"}
	require.Equal(t, 40, ScoreText(r, "PAO"))
}

func TestScoreIngredients(t *testing.T) {
	r := Recipe{Ingredients: []string{"frango", "arroz"}}
	require.Equal(t, 67, ScoreIngredients(r, []string{"frango", "arroz", "tomate"}))

	r = Recipe{Ingredients: []string{"200 g frango desfiado", "1 cebola", "2 tomates"}}
	require.Equal(t, 67, ScoreIngredients(r, []string{"frango", "tomate"}))
}

func TestScoreIngredients_NoDivideByZero(t *testing.T) {
	require.Equal(t, 0, ScoreIngredients(Recipe{}, nil))
	require.Equal(t, 0, ScoreIngredients(Recipe{}, []string{"frango"}))
	require.Equal(t, 0, ScoreIngredients(Recipe{Ingredients: []string{"arroz"}}, nil))
}

func TestScore_AlwaysInRange(t *testing.T) {
	recipes := []Recipe{
		{},
		{Name: "a", Category: "a", Origin: "a", Tags: []string{"a"}, Ingredients: []string{"a", "a"}},
		{Ingredients: []string{"x"}},
	}
	queries := []Query{
		{},
		{Text: "a"},
		{Ingredients: []string{"a"}},
		{Text: "a", Ingredients: []string{"a", "b", "c"}},
	}
	for _, r := range recipes {
		for _, q := range queries {
			s := Score(r, q)
			require.GreaterOrEqual(t, s, 0)
			require.LessOrEqual(t, s, 100)
		}
	}
}

func TestRank_TiesBySourceThenRetrievalOrder(t *testing.T) {
	recipes := []Recipe{
		{Name: "gen", Source: SourceGenerated},
		{Name: "local-1", Source: SourceLocal},
		{Name: "catalog", Source: SourceCatalog},
		{Name: "local-2", Source: SourceLocal},
	}

	ranked := Rank(recipes, Query{})

	names := make([]string, 0, len(ranked))
	for _, r := range ranked {
		require.Equal(t, NeutralScore, r.Score)
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"catalog", "local-1", "local-2", "gen"}, names)
}

func TestRank_HigherScoreFirst(t *testing.T) {
	recipes := []Recipe{
		{Name: "Bolo de cenoura", Source: SourceCatalog},
		{Name: "Frango frito", Source: SourceGenerated},
	}

	ranked := Rank(recipes, Query{Text: "frango"})

	require.Equal(t, "Frango frito", ranked[0].Name)
	require.Equal(t, 40, ranked[0].Score)
	require.Equal(t, 0, ranked[1].Score)
	// 原切片不被修改
	require.Equal(t, 0, recipes[0].Score)
}
