package recipe

import (
	"math"
	"sort"
	"strings"
)

// NeutralScore 沒有文字查詢時的預設分數
const NeutralScore = 50

// 各欄位命中的權重
const (
	weightName       = 40
	weightCategory   = 20
	weightOrigin     = 15
	weightTags       = 15
	weightIngredient = 10
	maxScore         = 100
)

// ScoreText 依文字查詢累加各欄位的命中分數，上限 100
func ScoreText(r Recipe, query string) int {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return NeutralScore
	}

	score := 0
	if strings.Contains(Fold(r.Name), q) {
		score += weightName
	}
	if strings.Contains(Fold(r.Category), q) {
		score += weightCategory
	}
	if strings.Contains(Fold(r.Origin), q) {
		score += weightOrigin
	}
	if strings.Contains(Fold(strings.Join(r.Tags, " ")), q) {
		score += weightTags
	}
	for _, line := range r.Ingredients {
		if strings.Contains(Fold(line), q) {
			score += weightIngredient
			break
		}
	}
	if score > maxScore {
		score = maxScore
	}
	return score
}

// ScoreIngredients 計算食譜食材與手邊食材的吻合百分比，分母取兩者較長者
func ScoreIngredients(r Recipe, available []string) int {
	wanted := make([]string, 0, len(available))
	for _, a := range available {
		if a = Fold(strings.TrimSpace(a)); a != "" {
			wanted = append(wanted, a)
		}
	}

	denominator := len(r.Ingredients)
	if len(wanted) > denominator {
		denominator = len(wanted)
	}
	if denominator == 0 {
		return 0
	}

	matched := 0
	for _, line := range r.Ingredients {
		l := Fold(strings.TrimSpace(line))
		if l == "" {
			continue
		}
		for _, w := range wanted {
			if strings.Contains(l, w) || strings.Contains(w, l) {
				matched++
				break
			}
		}
	}

	score := int(math.Round(100 * float64(matched) / float64(denominator)))
	if score > maxScore {
		score = maxScore
	}
	return score
}

// Score 依查詢類型選擇評分方式；文字與食材並存時取平均
func Score(r Recipe, q Query) int {
	hasText := strings.TrimSpace(q.Text) != ""
	hasIngredients := len(q.Ingredients) > 0
	switch {
	case hasText && hasIngredients:
		return int(math.Round(float64(ScoreText(r, q.Text)+ScoreIngredients(r, q.Ingredients)) / 2))
	case hasText:
		return ScoreText(r, q.Text)
	case hasIngredients:
		return ScoreIngredients(r, q.Ingredients)
	default:
		return NeutralScore
	}
}

// Rank 計分後穩定排序：分數高者優先，同分依來源優先序，再依原始取得順序
func Rank(recipes []Recipe, q Query) []Recipe {
	ranked := make([]Recipe, len(recipes))
	copy(ranked, recipes)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i], q)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Source.Priority() < ranked[j].Source.Priority()
	})
	return ranked
}
