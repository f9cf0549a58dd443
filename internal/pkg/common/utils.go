package common

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// WriteError 將錯誤轉為統一的錯誤響應
func WriteError(c *gin.Context, err error, details any) {
	var ce *CustomError
	if !errors.As(err, &ce) {
		ce = ErrInternalError
	}
	c.AbortWithStatusJSON(ce.Status, ErrorResponse{
		Code:    ce.Code,
		Message: ce.Message,
		Details: details,
	})
}

// SplitCSV 解析逗號分隔的查詢參數，去除空白與空值
func SplitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
