package translate

import (
	"strings"

	"recipe-aggregator/internal/core/recipe"
)

// 子字串掃描的最短長度，太短的詞會命中過多口語詞
const minSubstringLen = 3

// TranslateQuery 將工作語的搜尋詞轉成來源語候選詞：
// 口語表、食材反向索引、分類反向索引、口語表子字串掃描，取聯集去重；
// 全部落空時回傳原詞
func (t *Translator) TranslateQuery(term string) []string {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	folded := recipe.Fold(normalizeKey(term))

	var out []string
	seen := make(map[string]bool)
	add := func(candidates ...string) {
		for _, c := range candidates {
			key := strings.ToLower(c)
			if c == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}

	add(t.dict.colloquial[folded]...)
	add(t.dict.Ingredients.Reverse(folded)...)
	add(t.dict.Categories.Reverse(folded)...)

	if len([]rune(folded)) >= minSubstringLen {
		for _, key := range t.dict.colloquialKeys {
			if key == folded {
				continue
			}
			if strings.Contains(folded, key) || strings.Contains(key, folded) {
				add(t.dict.colloquial[key]...)
			}
		}
	}

	if len(out) == 0 {
		return []string{term}
	}
	return out
}

// IngredientToSource 單一食材名稱轉來源語，用於依食材篩選
func (t *Translator) IngredientToSource(term string) string {
	term = strings.TrimSpace(term)
	folded := recipe.Fold(normalizeKey(term))
	if _, ok := t.dict.Ingredients.Lookup(folded); ok {
		return folded
	}
	if sources := t.dict.Ingredients.Reverse(folded); len(sources) > 0 {
		return sources[0]
	}
	if candidates := t.dict.colloquial[folded]; len(candidates) > 0 {
		return candidates[0]
	}
	return term
}

// CategoryToSource 工作語分類名稱轉回目錄的分類名稱；已是來源語時原樣回傳
func (t *Translator) CategoryToSource(name string) (string, bool) {
	return toSource(t.dict.Categories, name)
}

// OriginToSource 工作語菜系名稱轉回目錄的地區名稱
func (t *Translator) OriginToSource(name string) (string, bool) {
	return toSource(t.dict.Origins, name)
}

func toSource(table *Table, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if _, ok := table.Lookup(name); ok {
		return titleCase(normalizeKey(name)), true
	}
	if sources := table.Reverse(name); len(sources) > 0 {
		return titleCase(sources[0]), true
	}
	return name, false
}

// 目錄的分類與地區名稱皆為首字大寫
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		rs := []rune(w)
		rs[0] = []rune(strings.ToUpper(string(rs[0])))[0]
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}
