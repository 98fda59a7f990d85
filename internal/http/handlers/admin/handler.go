package admin

import "github.com/bazaar-next/internal/provider"

// Handler 运营接口处理器：优惠维护与券使用量对账
type Handler struct {
	*provider.Container
}

// New 创建运营处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
