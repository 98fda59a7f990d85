package public

import (
	"strconv"
	"strings"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrder 创建订单：定价、券预占与落库在同一事务内完成
func (h *Handler) CreateOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	result, err := h.OrderService.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		CustomerID:     customerID,
		OrderReference: resolveOrderReference(c),
		Lines:          req.Lines,
		CouponCode:     req.CouponCode,
		ShippingFee:    req.ShippingFee,
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	response.Success(c, result)
}

// ListOrders 获取订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListOrders(c.Request.Context(), repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondOrderQueryError(c, err)
		return
	}

	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrderByOrderNo 按订单号获取订单详情
func (h *Handler) GetOrderByOrderNo(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "订单号无效", nil)
		return
	}

	order, err := h.OrderService.GetOrder(c.Request.Context(), customerID, orderNo)
	if err != nil {
		respondOrderQueryError(c, err)
		return
	}

	response.Success(c, order)
}
