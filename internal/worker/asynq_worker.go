package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/provider"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCouponUsageAudit, c.handleCouponUsageAudit)
	mux.HandleFunc(queue.TaskCouponAuditSweep, c.handleCouponAuditSweep)
}

func (c *Consumer) handleCouponUsageAudit(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || c.ReconciliationService == nil || task == nil {
		logger.Debugw("worker_coupon_usage_audit_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.DecodeCouponUsageAuditPayload(task)
	if err != nil {
		logger.Warnw("worker_coupon_usage_audit_unmarshal_failed", "error", err)
		return err
	}
	if payload.DiscountID == 0 {
		logger.Debugw("worker_coupon_usage_audit_skip_invalid_payload", "discount_id", payload.DiscountID)
		return nil
	}
	report, err := c.ReconciliationService.AuditDiscount(ctx, payload.DiscountID)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			logger.Debugw("worker_coupon_usage_audit_skip_not_found", "discount_id", payload.DiscountID)
			return nil
		}
		logger.Warnw("worker_coupon_usage_audit_failed", "discount_id", payload.DiscountID, "error", err)
		return err
	}
	logger.Infow("worker_coupon_usage_audit_done",
		"discount_id", payload.DiscountID,
		"order_reference", payload.OrderReference,
		"reason", payload.Reason,
		"consistent", report.Consistent(),
	)
	return nil
}

func (c *Consumer) handleCouponAuditSweep(ctx context.Context, _ *asynq.Task) error {
	if c == nil || c.Container == nil || c.ReconciliationService == nil {
		logger.Debugw("worker_coupon_audit_sweep_skip_nil", "consumer_nil", c == nil)
		return nil
	}
	started := time.Now()
	drifted, err := c.ReconciliationService.AuditAll(ctx)
	if err != nil {
		logger.Warnw("worker_coupon_audit_sweep_failed", "error", err)
		return err
	}
	logger.Infow("worker_coupon_audit_sweep_done", "drifted", drifted, "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

func (c *Consumer) auditEnabled() bool {
	return c != nil && c.Container != nil && c.Config != nil && c.Config.Reconcile.Enabled && c.ReconciliationService != nil
}

func (c *Consumer) auditInterval() time.Duration {
	if c == nil || c.Container == nil {
		return reconcileInterval(nil)
	}
	return reconcileInterval(c.Config)
}

// scheduleCouponAuditSweep 队列可用时投递唯一巡检任务，否则直接执行
func (c *Consumer) scheduleCouponAuditSweep(ctx context.Context, window time.Duration) error {
	if c.QueueClient.Enabled() {
		return c.QueueClient.EnqueueCouponAuditSweep(ctx, window)
	}
	return c.handleCouponAuditSweep(ctx, nil)
}
