package recipe

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleMeal = `{
	"idMeal": "52977",
	"strMeal": "Corba",
	"strCategory": "Side",
	"strArea": "Turkish",
	"strInstructions": "Pick through your lentils for any foreign debris.",
	"strMealThumb": "https://www.themealdb.com/images/media/meals/58oia61564916529.jpg",
	"strTags": "Soup, Warming",
	"strIngredient1": "Lentils",
	"strMeasure1": "1 cup ",
	"strIngredient2": "Onion",
	"strMeasure2": "1 large",
	"strIngredient3": "",
	"strMeasure3": " ",
	"strIngredient4": "Carrots",
	"strMeasure4": null,
	"strIngredient5": null,
	"strMeasure5": null
}`

func TestCatalogMeal_Unmarshal(t *testing.T) {
	var meal CatalogMeal
	require.NoError(t, json.Unmarshal([]byte(sampleMeal), &meal))

	require.Equal(t, "52977", meal.ID)
	require.Equal(t, "Turkish", meal.Area)
	require.Equal(t, []string{"1 cup Lentils", "1 large Onion", "Carrots"}, meal.IngredientLines())
}

func TestNormalize_Catalog(t *testing.T) {
	var meal CatalogMeal
	require.NoError(t, json.Unmarshal([]byte(sampleMeal), &meal))
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r, err := Normalize(meal, now)
	require.NoError(t, err)

	require.Equal(t, "themealdb-52977", r.ExternalID)
	require.Equal(t, SourceCatalog, r.Source)
	require.Equal(t, "Turkish", r.Origin)
	require.Equal(t, []string{"Soup", "Warming"}, r.Tags)
	require.Equal(t, Time15To30, r.EstimatedTime)
	require.Equal(t, DifficultyEasy, r.Difficulty)
	require.Equal(t, now, r.CreatedAt)
	require.Zero(t, r.ID)
}

func TestNormalize_CatalogMissingFields(t *testing.T) {
	_, err := Normalize(CatalogMeal{Name: "No id"}, time.Now())
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNormalize_LocalDefaults(t *testing.T) {
	r, err := Normalize(LocalRow{ID: 7, Name: "Feijoada", Source: "local", Difficulty: "Difícil"}, time.Now())
	require.NoError(t, err)

	require.Equal(t, int64(7), r.ID)
	require.NotNil(t, r.Ingredients)
	require.NotNil(t, r.Tags)
	require.Empty(t, r.Ingredients)
	require.Equal(t, DifficultyHard, r.Difficulty)
	require.Equal(t, Time15To30, r.EstimatedTime)
}

func TestNormalize_LocalUnknownSourceFallsBack(t *testing.T) {
	r, err := Normalize(&LocalRow{Name: "x", Source: "weird"}, time.Now())
	require.NoError(t, err)
	require.Equal(t, SourceLocal, r.Source)
}

func TestNormalize_GeneratedDefaults(t *testing.T) {
	draft := GeneratedDraft{
		Name:        "Arroz de frango",
		Ingredients: []string{"- 2 xícaras de arroz", "• 300 g de frango", "  "},
	}

	r, err := Normalize(draft, time.Now())
	require.NoError(t, err)

	require.Equal(t, SourceGenerated, r.Source)
	require.Equal(t, DefaultGeneratedCategory, r.Category)
	require.Equal(t, DefaultGeneratedTime, r.EstimatedTime)
	require.Equal(t, DifficultyMedium, r.Difficulty)
	require.Equal(t, []string{"2 xícaras de arroz", "300 g de frango"}, r.Ingredients)
	require.True(t, strings.HasPrefix(r.ExternalID, "generated-"))
	require.False(t, r.Verified)
}

func TestNormalize_GeneratedRejectsEmpty(t *testing.T) {
	_, err := Normalize(GeneratedDraft{Name: "Vazio"}, time.Now())
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestGeneratedExternalID_Stable(t *testing.T) {
	a := GeneratedExternalID("Arroz de Frango", []string{"Arroz", "Frango"})
	b := GeneratedExternalID("arroz de frango ", []string{"arroz", "frango"})
	c := GeneratedExternalID("Arroz de Frango", []string{"Arroz"})

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestEstimateBuckets(t *testing.T) {
	tests := []struct {
		count, length int
		time          string
		difficulty    Difficulty
	}{
		{5, 399, Time15To30, DifficultyEasy},
		{6, 100, Time30To45, DifficultyEasy},
		{8, 799, Time30To45, DifficultyEasy},
		{9, 100, Time45To60, DifficultyEasy},
		{11, 900, Time45To60, DifficultyMedium},
		{13, 100, Time60Plus, DifficultyMedium},
		{16, 100, Time60Plus, DifficultyHard},
		{3, 1501, Time60Plus, DifficultyHard},
	}
	for _, tt := range tests {
		require.Equal(t, tt.time, EstimateTime(tt.count, tt.length), "time for %d/%d", tt.count, tt.length)
		require.Equal(t, tt.difficulty, EstimateDifficulty(tt.count, tt.length), "difficulty for %d/%d", tt.count, tt.length)
	}
}

func TestParseDifficulty(t *testing.T) {
	for raw, want := range map[string]Difficulty{
		"Fácil": DifficultyEasy, "médio": DifficultyMedium, "MEDIUM": DifficultyMedium, "Difícil": DifficultyHard, "hard": DifficultyHard,
	} {
		got, ok := ParseDifficulty(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got)
	}
	_, ok := ParseDifficulty("impossível")
	require.False(t, ok)
}
