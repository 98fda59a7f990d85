package app

import (
	"context"
	"errors"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/service"
)

// ReconcileService 未启用队列时的进程内券使用量巡检
type ReconcileService struct {
	reconciler *service.ReconciliationService
	interval   time.Duration
}

// NewReconcileService 创建巡检服务
func NewReconcileService(reconciler *service.ReconciliationService, interval time.Duration) *ReconcileService {
	return &ReconcileService{reconciler: reconciler, interval: interval}
}

// Name 服务名称
func (s *ReconcileService) Name() string {
	return "reconcile"
}

// Start 按间隔执行巡检直到 ctx 结束
func (s *ReconcileService) Start(ctx context.Context) error {
	if s == nil || s.reconciler == nil {
		return errors.New("reconcile service not initialized")
	}
	interval := s.interval
	if interval <= 0 {
		interval = time.Duration(constants.ReconcileIntervalSecondsDefault) * time.Second
	}
	runOnce := func() {
		drifted, err := s.reconciler.AuditAll(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnw("reconcile_audit_failed", "error", err)
			return
		}
		logger.Debugw("reconcile_audit_done", "drifted", drifted)
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

// Stop 巡检随 ctx 结束退出
func (s *ReconcileService) Stop(context.Context) error {
	return nil
}
