package translate

import (
	"strings"
	"unicode"

	"recipe-aggregator/internal/core/recipe"
)

// Replace 由左到右掃描，在每個字首位置取最長且前後皆為字界的片語替換，已替換的區段不再重掃
func (t *Table) Replace(text string) string {
	if text == "" || len(t.forward) == 0 {
		return text
	}

	rs := []rune(text)
	lower := make([]rune, len(rs))
	for i, r := range rs {
		lower[i] = unicode.ToLower(r)
	}

	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(rs) {
		if !isWordRune(rs[i]) {
			b.WriteRune(rs[i])
			i++
			continue
		}

		if e, n, ok := t.matchAt(lower, i); ok {
			b.WriteString(matchCase(rs[i], e.target))
			i += n
			continue
		}

		// 沒有命中時整個字原樣輸出，避免在字中間比對
		j := i
		for j < len(rs) && isWordRune(rs[j]) {
			j++
		}
		b.WriteString(string(rs[i:j]))
		i = j
	}
	return b.String()
}

// matchAt 回傳命中的條目與消耗的 rune 數；片語中的單一空白可對應輸入中任意長度的空白
func (t *Table) matchAt(lower []rune, i int) (entry, int, bool) {
	for _, e := range t.byFirst[lower[i]] {
		end, ok := matchPhrase(lower, i, e.source)
		if !ok {
			continue
		}
		if end < len(lower) && isWordRune(lower[end]) {
			continue
		}
		return e, end - i, true
	}
	return entry{}, 0, false
}

func matchPhrase(lower []rune, i int, phrase []rune) (int, bool) {
	j := i
	for _, p := range phrase {
		if j >= len(lower) {
			return 0, false
		}
		if p == ' ' {
			if !unicode.IsSpace(lower[j]) {
				return 0, false
			}
			for j < len(lower) && unicode.IsSpace(lower[j]) {
				j++
			}
			continue
		}
		if lower[j] != p {
			return 0, false
		}
		j++
	}
	return j, true
}

// 原文首字大寫時，譯文首字也大寫
func matchCase(first rune, target string) string {
	if !unicode.IsUpper(first) || target == "" {
		return target
	}
	rs := []rune(target)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// Translator 食譜欄位翻譯器（來源語 → 工作語）
type Translator struct {
	dict *Dictionary

	name        *Table
	line        *Table
	instruction *Table
}

// NewTranslator 建立翻譯器，合併各欄位使用的表
func NewTranslator(dict *Dictionary) *Translator {
	return &Translator{
		dict:        dict,
		name:        Merge(dict.Ingredients, dict.Categories, dict.Origins),
		line:        Merge(dict.Ingredients, dict.Units),
		instruction: Merge(dict.Ingredients, dict.Units, dict.Verbs),
	}
}

// New 使用內嵌字典建立翻譯器
func New() (*Translator, error) {
	dict, err := DefaultDictionary()
	if err != nil {
		return nil, err
	}
	return NewTranslator(dict), nil
}

// Dictionary 取得底層字典
func (t *Translator) Dictionary() *Dictionary {
	return t.dict
}

// TranslateName 翻譯食譜名稱或標籤
func (t *Translator) TranslateName(s string) string {
	return t.name.Replace(s)
}

// TranslateCategory 翻譯分類
func (t *Translator) TranslateCategory(s string) string {
	return t.dict.Categories.Replace(s)
}

// TranslateOrigin 翻譯菜系／產地
func (t *Translator) TranslateOrigin(s string) string {
	return t.dict.Origins.Replace(s)
}

// TranslateIngredient 翻譯一行「數量 單位 食材」
func (t *Translator) TranslateIngredient(s string) string {
	return t.line.Replace(s)
}

// TranslateInstructions 翻譯做法
func (t *Translator) TranslateInstructions(s string) string {
	return t.instruction.Replace(s)
}

// TranslateRecipe 各欄位分別翻譯一次；已是工作語的內容不會再被改變
func (t *Translator) TranslateRecipe(r recipe.Recipe) recipe.Recipe {
	r.Name = t.TranslateName(r.Name)
	r.Category = t.TranslateCategory(r.Category)
	r.Origin = t.TranslateOrigin(r.Origin)

	ingredients := make([]string, len(r.Ingredients))
	for i, line := range r.Ingredients {
		ingredients[i] = t.TranslateIngredient(line)
	}
	r.Ingredients = ingredients

	tags := make([]string, len(r.Tags))
	for i, tag := range r.Tags {
		tags[i] = t.TranslateName(tag)
	}
	r.Tags = tags

	r.Instructions = t.TranslateInstructions(r.Instructions)
	return r
}
