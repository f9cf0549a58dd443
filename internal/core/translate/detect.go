package translate

import (
	"strings"
	"unicode"

	"recipe-aggregator/internal/core/recipe"
)

// 關鍵字密度門檻
const sourceLanguageDensity = 0.08

var englishMarkers = map[string]struct{}{
	"the": {}, "and": {}, "with": {}, "until": {}, "add": {}, "minutes": {}, "into": {},
	"of": {}, "to": {}, "in": {}, "for": {}, "heat": {}, "stir": {}, "cook": {}, "over": {},
	"then": {}, "from": {}, "pan": {}, "oven": {}, "bowl": {}, "water": {}, "salt": {},
	"chicken": {}, "beef": {}, "sauce": {}, "serve": {}, "place": {}, "remove": {},
}

var portugueseMarkers = map[string]struct{}{
	"de": {}, "e": {}, "com": {}, "o": {}, "em": {}, "para": {}, "ate": {}, "minutos": {},
	"adicione": {}, "misture": {}, "do": {}, "da": {}, "no": {}, "na": {}, "um": {}, "uma": {},
	"os": {}, "as": {}, "que": {}, "ao": {}, "frango": {}, "molho": {}, "sal": {}, "agua": {},
}

// LooksLikeSourceLanguage 依英文關鍵字密度判斷文字是否仍為目錄原文
func LooksLikeSourceLanguage(text string) bool {
	words := strings.FieldsFunc(recipe.Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return false
	}

	english, portuguese := 0, 0
	for _, w := range words {
		if _, ok := englishMarkers[w]; ok {
			english++
		}
		if _, ok := portugueseMarkers[w]; ok {
			portuguese++
		}
	}
	density := float64(english) / float64(len(words))
	return density >= sourceLanguageDensity && english > portuguese
}

// RecipeLooksLikeSourceLanguage 以名稱加做法判斷
func RecipeLooksLikeSourceLanguage(r recipe.Recipe) bool {
	return LooksLikeSourceLanguage(r.Name + " " + r.Instructions)
}
