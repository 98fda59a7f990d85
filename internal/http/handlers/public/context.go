package public

import (
	"strings"

	"github.com/bazaar-next/internal/constants"
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getCustomerID 读取上游网关注入的用户ID
func getCustomerID(c *gin.Context) (uint, bool) {
	return handlershared.HeaderUint(c, constants.HeaderCustomerID)
}

// resolveOrderReference 订单引用取自 Idempotency-Key，缺失时生成
func resolveOrderReference(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(constants.HeaderIdempotencyKey)); key != "" {
		return key
	}
	return uuid.NewString()
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}
