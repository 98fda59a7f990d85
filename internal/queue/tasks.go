package queue

import (
	"encoding/json"

	"github.com/bazaar-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCouponUsageAudit 单券使用量对账任务
	TaskCouponUsageAudit = constants.TaskCouponUsageAudit
	// TaskCouponAuditSweep 全量券使用量巡检任务
	TaskCouponAuditSweep = constants.TaskCouponAuditSweep
)

// CouponUsageAuditPayload 对账任务载荷
type CouponUsageAuditPayload struct {
	DiscountID     uint   `json:"discount_id"`
	CustomerID     uint   `json:"customer_id,omitempty"`
	OrderReference string `json:"order_reference,omitempty"`
	Reason         string `json:"reason"`
}

// NewCouponUsageAuditTask 创建对账任务
func NewCouponUsageAuditTask(payload CouponUsageAuditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCouponUsageAudit, body), nil
}

// NewCouponAuditSweepTask 创建巡检任务
func NewCouponAuditSweepTask() *asynq.Task {
	return asynq.NewTask(TaskCouponAuditSweep, nil)
}

// DecodeCouponUsageAuditPayload 解析对账任务载荷
func DecodeCouponUsageAuditPayload(task *asynq.Task) (CouponUsageAuditPayload, error) {
	var payload CouponUsageAuditPayload
	if task == nil {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
