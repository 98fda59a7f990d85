package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/provider"
	"github.com/bazaar-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestReconcileIntervalFallsBackToDefault(t *testing.T) {
	if got := reconcileInterval(nil); got != 300*time.Second {
		t.Fatalf("expected default interval 300s, got %s", got)
	}
	cfg := &config.Config{Reconcile: config.ReconcileConfig{AuditIntervalSeconds: -5}}
	if got := reconcileInterval(cfg); got != 300*time.Second {
		t.Fatalf("expected default interval for non-positive value, got %s", got)
	}
	cfg.Reconcile.AuditIntervalSeconds = 30
	if got := reconcileInterval(cfg); got != 30*time.Second {
		t.Fatalf("expected configured interval 30s, got %s", got)
	}
}

func TestConsumerAuditDisabledWithoutService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{Config: &config.Config{Reconcile: config.ReconcileConfig{Enabled: true}}})
	if consumer.auditEnabled() {
		t.Fatalf("audit loop must stay off without reconciliation service")
	}
	var nilConsumer *Consumer
	if nilConsumer.auditEnabled() {
		t.Fatalf("nil consumer must not enable audit loop")
	}
}

func TestHandleCouponUsageAuditSkipsWithoutService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	body, _ := json.Marshal(queue.CouponUsageAuditPayload{DiscountID: 1, Reason: "compensation_failed"})
	task := asynq.NewTask(queue.TaskCouponUsageAudit, body)
	if err := consumer.handleCouponUsageAudit(context.Background(), task); err != nil {
		t.Fatalf("expected nil error when service missing, got %v", err)
	}
	if err := consumer.handleCouponAuditSweep(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error when service missing, got %v", err)
	}
}

func TestRegisterNilMuxDoesNotPanic(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	consumer.Register(nil)
	var nilConsumer *Consumer
	nilConsumer.Register(asynq.NewServeMux())
}
