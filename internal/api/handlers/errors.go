package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/ai/service"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// QuotaDetails 額度用完時回給呼叫端的資訊
type QuotaDetails struct {
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// WriteError 將核心錯誤對應到 HTTP 錯誤響應
// 只有輸入錯誤與額度用完是預期中的非 200 結果
func WriteError(c *gin.Context, err error) {
	var quotaErr *service.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		retry := time.Until(quotaErr.ResetAt)
		if retry < 0 {
			retry = 0
		}
		c.Header("Retry-After", fmt.Sprintf("%d", int(retry.Seconds())))
		common.WriteError(c, common.ErrQuotaExceeded, QuotaDetails{
			Used:    quotaErr.Used,
			Limit:   quotaErr.Limit,
			ResetAt: quotaErr.ResetAt,
		})
	case errors.Is(err, recipe.ErrInvalidQuery), common.IsValidationError(err):
		common.WriteError(c, common.ErrInvalidQuery, err.Error())
	case errors.Is(err, recipe.ErrNotFound), errors.Is(err, recipe.ErrFavoriteNotFound):
		common.WriteError(c, common.ErrNotFound, nil)
	case errors.Is(err, context.DeadlineExceeded):
		common.WriteError(c, common.ErrGatewayTimeout, nil)
	default:
		common.LogError("請求處理失敗",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
		common.WriteError(c, common.ErrInternalError, nil)
	}
}

// BadRequest 請求格式錯誤
func BadRequest(c *gin.Context, err error) {
	common.WriteError(c, common.ErrInvalidRequest, err.Error())
}
