package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateDiscount 创建优惠规则
func (h *Handler) CreateDiscount(c *gin.Context) {
	var req service.CreateDiscountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	discount, err := h.DiscountAdminService.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDiscountInvalid), errors.Is(err, service.ErrInvalidCouponFormat):
			respondBusinessError(c, response.CodeBadRequest, err)
		default:
			respondError(c, response.CodeInternal, "优惠创建失败", err)
		}
		return
	}
	response.Success(c, discount)
}

// AuditCoupon 单券使用量对账
func (h *Handler) AuditCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "优惠ID无效", nil)
		return
	}
	report, err := h.ReconciliationService.AuditDiscount(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			respondBusinessError(c, response.CodeNotFound, err)
			return
		}
		respondError(c, response.CodeInternal, "对账失败", err)
		return
	}
	response.Success(c, gin.H{
		"report":     report,
		"consistent": report.Consistent(),
	})
}

// TriggerCouponAudit 投递全量巡检；未启用队列时同步执行
func (h *Handler) TriggerCouponAudit(c *gin.Context) {
	if h.QueueClient.Enabled() {
		window := time.Duration(constants.ReconcileIntervalSecondsDefault) * time.Second
		if err := h.QueueClient.EnqueueCouponAuditSweep(c.Request.Context(), window); err != nil {
			respondError(c, response.CodeInternal, "巡检任务投递失败", err)
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}
	drifted, err := h.ReconciliationService.AuditAll(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "对账失败", err)
		return
	}
	response.Success(c, gin.H{"queued": false, "drifted": drifted})
}
