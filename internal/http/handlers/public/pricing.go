package public

import (
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PricingRequest 报价/下单请求体，lines 保持上游原样
type PricingRequest struct {
	Lines       []models.JSON `json:"lines" binding:"required"`
	CouponCode  string        `json:"coupon_code"`
	ShippingFee models.Money  `json:"shipping_fee"`
}

// Quote 购物车报价（只读）
func (h *Handler) Quote(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	result, err := h.PricingService.ComputePricing(c.Request.Context(), service.PricingInput{
		Lines:       req.Lines,
		CouponCode:  req.CouponCode,
		ShippingFee: req.ShippingFee,
	})
	if err != nil {
		respondPricingQuoteError(c, err)
		return
	}
	response.Success(c, result)
}
