package common

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號；字串常值內的內容原樣保留
func QuoteJSONKeys(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 16)

	start := 0
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inString && escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case inString && c == '"':
			inString = false
			b.WriteString(raw[start : i+1])
			start = i + 1
		case !inString && c == '"':
			b.WriteString(quoteKeys(raw[start:i]))
			start = i
			inString = true
		}
	}
	if inString {
		b.WriteString(raw[start:])
	} else {
		b.WriteString(quoteKeys(raw[start:]))
	}
	return b.String()
}

func quoteKeys(segment string) string {
	return unquotedKeyPattern.ReplaceAllString(segment, `$1"$2":`)
}

// ExtractJSONObject 去除 markdown/fence：取第一個 { 到最後一個 }
func ExtractJSONObject(content string) string {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// ParseLooseJSON 先嚴格解析，失敗時補上鍵的雙引號再試一次
func ParseLooseJSON(content string, v interface{}) error {
	text := ExtractJSONObject(content)
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(QuoteJSONKeys(text)), v); err != nil {
		return fmt.Errorf("failed to parse AI response: %w", err)
	}
	return nil
}

// StringSliceToString 將字符串切片轉換為逗號分隔的字符串
func StringSliceToString(slice []string) string {
	if len(slice) == 0 {
		return ""
	}
	return strings.Join(slice, ", ")
}
