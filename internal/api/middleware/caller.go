package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader 上游已驗證的使用者身分
	UserIDHeader = "X-User-ID"

	CallerKey  = "caller"
	MeteredKey = "metered"
)

// Caller 解析呼叫者身分；沒有使用者 id 時以 anon:<ip> 計量
func Caller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := strings.TrimSpace(c.GetHeader(UserIDHeader)); user != "" {
			c.Set(CallerKey, user)
			c.Set(MeteredKey, false)
		} else {
			c.Set(CallerKey, "anon:"+c.ClientIP())
			c.Set(MeteredKey, true)
		}
		c.Next()
	}
}

// CallerFrom 取出呼叫者與是否為計量模式
func CallerFrom(c *gin.Context) (string, bool) {
	caller := c.GetString(CallerKey)
	if caller == "" {
		return "anon:" + c.ClientIP(), true
	}
	return caller, c.GetBool(MeteredKey)
}
