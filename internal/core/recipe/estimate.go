package recipe

import "unicode/utf8"

// 由食材數與步驟長度推估時間與難度；純函式，非真實烹飪時間
const (
	Time15To30 = "15-30 min"
	Time30To45 = "30-45 min"
	Time45To60 = "45-60 min"
	Time60Plus = "60+ min"
)

// EstimateTime 依食材數與說明字數分桶
func EstimateTime(ingredientCount, instructionLen int) string {
	switch {
	case ingredientCount < 6 && instructionLen < 400:
		return Time15To30
	case ingredientCount < 9 && instructionLen < 800:
		return Time30To45
	case ingredientCount < 13 && instructionLen < 1200:
		return Time45To60
	default:
		return Time60Plus
	}
}

// EstimateDifficulty 依食材數與說明字數判斷難度
func EstimateDifficulty(ingredientCount, instructionLen int) Difficulty {
	switch {
	case ingredientCount > 15 || instructionLen > 1500:
		return DifficultyHard
	case ingredientCount > 10 || instructionLen > 800:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}

func instructionLength(s string) int {
	return utf8.RuneCountInString(s)
}
