package service

import (
	"context"
	"sort"

	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/repository"

	"gorm.io/gorm"
)

// ReconciliationService 券使用量对账：只记录偏差供人工修复，不自动改写计数
type ReconciliationService struct {
	db             *gorm.DB
	discountRepo   repository.DiscountRepository
	redemptionRepo repository.CouponRedemptionRepository
}

// NewReconciliationService 创建对账服务
func NewReconciliationService(db *gorm.DB, discountRepo repository.DiscountRepository, redemptionRepo repository.CouponRedemptionRepository) *ReconciliationService {
	return &ReconciliationService{
		db:             db,
		discountRepo:   discountRepo,
		redemptionRepo: redemptionRepo,
	}
}

// CustomerDrift 用户维度偏差
type CustomerDrift struct {
	CustomerID   uint  `json:"customer_id"`
	CounterValue int   `json:"counter_value"`
	EventCount   int64 `json:"event_count"`
}

// DiscountAuditReport 单券对账结果
type DiscountAuditReport struct {
	DiscountID     uint            `json:"discount_id"`
	UsedCount      int             `json:"used_count"`
	EventCount     int64           `json:"event_count"`
	CustomerDrifts []CustomerDrift `json:"customer_drifts,omitempty"`
}

// Consistent 计数是否一致
func (r *DiscountAuditReport) Consistent() bool {
	return r != nil && int64(r.UsedCount) == r.EventCount && len(r.CustomerDrifts) == 0
}

// AuditDiscount 比对券总计数与幂等记录数、用户计数与用户幂等记录数
func (s *ReconciliationService) AuditDiscount(ctx context.Context, discountID uint) (*DiscountAuditReport, error) {
	db := s.db.WithContext(ctx)
	discountRepo := s.discountRepo.WithTx(db)
	redemptionRepo := s.redemptionRepo.WithTx(db)

	discount, err := discountRepo.GetByID(discountID)
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, ErrCouponNotFound
	}
	eventCount, err := redemptionRepo.CountEvents(discountID)
	if err != nil {
		return nil, err
	}
	counters, err := redemptionRepo.ListCounters(discountID)
	if err != nil {
		return nil, err
	}
	eventsByCustomer, err := redemptionRepo.CountEventsByCustomer(discountID)
	if err != nil {
		return nil, err
	}

	report := &DiscountAuditReport{
		DiscountID: discountID,
		UsedCount:  discount.UsedCount,
		EventCount: eventCount,
	}
	seen := make(map[uint]struct{}, len(counters))
	for _, counter := range counters {
		seen[counter.CustomerID] = struct{}{}
		events := eventsByCustomer[counter.CustomerID]
		if int64(counter.UsedCount) != events {
			report.CustomerDrifts = append(report.CustomerDrifts, CustomerDrift{
				CustomerID:   counter.CustomerID,
				CounterValue: counter.UsedCount,
				EventCount:   events,
			})
		}
	}
	for customerID, events := range eventsByCustomer {
		if _, ok := seen[customerID]; ok {
			continue
		}
		report.CustomerDrifts = append(report.CustomerDrifts, CustomerDrift{
			CustomerID: customerID,
			EventCount: events,
		})
	}
	sortCustomerDrifts(report.CustomerDrifts)

	if int64(report.UsedCount) != report.EventCount {
		metrics.CouponUsageDriftTotal.WithLabelValues("global").Inc()
		logger.Criticalw("coupon_usage_drift_detected",
			"discount_id", discountID,
			"used_count", report.UsedCount,
			"event_count", report.EventCount,
		)
	}
	for _, drift := range report.CustomerDrifts {
		metrics.CouponUsageDriftTotal.WithLabelValues("customer").Inc()
		logger.Criticalw("coupon_customer_usage_drift_detected",
			"discount_id", discountID,
			"customer_id", drift.CustomerID,
			"counter_value", drift.CounterValue,
			"event_count", drift.EventCount,
		)
	}
	return report, nil
}

// AuditAll 巡检所有限额券，单券失败不影响其余券
func (s *ReconciliationService) AuditAll(ctx context.Context) (int, error) {
	ids, err := s.discountRepo.WithTx(s.db.WithContext(ctx)).ListLimitedCouponIDs()
	if err != nil {
		return 0, err
	}
	drifted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return drifted, ctx.Err()
		}
		report, err := s.AuditDiscount(ctx, id)
		if err != nil {
			logger.Warnw("coupon_usage_audit_failed", "discount_id", id, "error", err)
			continue
		}
		if !report.Consistent() {
			drifted++
		}
	}
	return drifted, nil
}

func sortCustomerDrifts(drifts []CustomerDrift) {
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].CustomerID < drifts[j].CustomerID })
}
