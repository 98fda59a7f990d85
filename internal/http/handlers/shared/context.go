package shared

import (
	"strconv"
	"strings"

	"github.com/bazaar-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// HeaderUint 读取请求头中的正整数，缺失或非法时写入错误响应。
func HeaderUint(c *gin.Context, header string) (uint, bool) {
	raw := strings.TrimSpace(c.GetHeader(header))
	if raw == "" {
		RespondError(c, response.CodeUnauthorized, "缺少请求头 "+header, nil)
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "请求头 "+header+" 无效", nil)
		return 0, false
	}
	return uint(value), true
}
