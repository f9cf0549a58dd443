package translate

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"recipe-aggregator/internal/core/recipe"
)

//go:embed dictionary.yaml
var defaultDictionary []byte

// tables YAML 檔案結構
type tables struct {
	Categories  map[string]string   `yaml:"categories"`
	Origins     map[string]string   `yaml:"origins"`
	Ingredients map[string]string   `yaml:"ingredients"`
	Units       map[string]string   `yaml:"units"`
	Verbs       map[string]string   `yaml:"verbs"`
	Colloquial  map[string][]string `yaml:"colloquial"`
}

type entry struct {
	source []rune
	target string
}

// Table 單一語意類別的片語替換表
type Table struct {
	byFirst map[rune][]entry
	forward map[string]string
	reverse map[string][]string
}

// NewTable 建立替換表；鍵會轉小寫並壓縮空白
func NewTable(pairs map[string]string) *Table {
	t := &Table{
		byFirst: make(map[rune][]entry),
		forward: make(map[string]string, len(pairs)),
		reverse: make(map[string][]string, len(pairs)),
	}
	// 排序後建立反向索引，候選順序才會穩定
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.add(k, pairs[k])
	}
	t.sortEntries()
	return t
}

func (t *Table) add(source, target string) {
	key := normalizeKey(source)
	target = strings.TrimSpace(target)
	if key == "" || target == "" {
		return
	}
	if _, exists := t.forward[key]; exists {
		return
	}
	t.forward[key] = target

	src := []rune(key)
	t.byFirst[src[0]] = append(t.byFirst[src[0]], entry{source: src, target: target})

	folded := recipe.Fold(target)
	t.reverse[folded] = append(t.reverse[folded], key)
}

// 同一起始字元內，長的片語先比對
func (t *Table) sortEntries() {
	for r := range t.byFirst {
		entries := t.byFirst[r]
		sort.SliceStable(entries, func(i, j int) bool {
			return len(entries[i].source) > len(entries[j].source)
		})
	}
}

// Merge 合併多個表，前面的表在鍵衝突時優先
func Merge(parts ...*Table) *Table {
	t := &Table{
		byFirst: make(map[rune][]entry),
		forward: make(map[string]string),
		reverse: make(map[string][]string),
	}
	for _, p := range parts {
		keys := make([]string, 0, len(p.forward))
		for k := range p.forward {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.add(k, p.forward[k])
		}
	}
	t.sortEntries()
	return t
}

// Len 表內片語數
func (t *Table) Len() int {
	return len(t.forward)
}

// Pairs 回傳表內容的副本
func (t *Table) Pairs() map[string]string {
	out := make(map[string]string, len(t.forward))
	for k, v := range t.forward {
		out[k] = v
	}
	return out
}

// Lookup 完整片語的正向查詢
func (t *Table) Lookup(source string) (string, bool) {
	v, ok := t.forward[normalizeKey(source)]
	return v, ok
}

// Reverse 以目標語片語（忽略大小寫與重音）查回所有來源片語
func (t *Table) Reverse(target string) []string {
	return t.reverse[recipe.Fold(strings.TrimSpace(target))]
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Dictionary 所有翻譯表，程式啟動時建立一次，之後唯讀
type Dictionary struct {
	Categories  *Table
	Origins     *Table
	Ingredients *Table
	Units       *Table
	Verbs       *Table

	colloquial map[string][]string
	// 依鍵排序，子字串掃描時順序穩定
	colloquialKeys []string
}

// LoadDictionary 解析 YAML 字典
func LoadDictionary(data []byte) (*Dictionary, error) {
	var raw tables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}

	d := &Dictionary{
		Categories:  NewTable(raw.Categories),
		Origins:     NewTable(raw.Origins),
		Ingredients: NewTable(raw.Ingredients),
		Units:       NewTable(raw.Units),
		Verbs:       NewTable(raw.Verbs),
		colloquial:  make(map[string][]string, len(raw.Colloquial)),
	}
	for term, candidates := range raw.Colloquial {
		key := recipe.Fold(normalizeKey(term))
		if key == "" {
			continue
		}
		cleaned := make([]string, 0, len(candidates))
		for _, c := range candidates {
			if c = strings.TrimSpace(c); c != "" {
				cleaned = append(cleaned, c)
			}
		}
		d.colloquial[key] = cleaned
		d.colloquialKeys = append(d.colloquialKeys, key)
	}
	sort.Strings(d.colloquialKeys)

	if d.Ingredients.Len() == 0 || d.Categories.Len() == 0 {
		return nil, fmt.Errorf("dictionary has no ingredient or category entries")
	}
	return d, nil
}

// DefaultDictionary 內嵌的預設字典
func DefaultDictionary() (*Dictionary, error) {
	return LoadDictionary(defaultDictionary)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
