package admin

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondBusinessError(c *gin.Context, code int, err error) {
	handlershared.RespondBusinessError(c, code, err)
}
