package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"

	"gorm.io/gorm"
)

// CouponReservationService 优惠券名额预占
type CouponReservationService struct {
	db             *gorm.DB
	discountRepo   repository.DiscountRepository
	redemptionRepo repository.CouponRedemptionRepository
	queueClient    *queue.Client
	now            func() time.Time
}

// NewCouponReservationService 创建券预占服务
func NewCouponReservationService(
	db *gorm.DB,
	discountRepo repository.DiscountRepository,
	redemptionRepo repository.CouponRedemptionRepository,
	queueClient *queue.Client,
) *CouponReservationService {
	return &CouponReservationService{
		db:             db,
		discountRepo:   discountRepo,
		redemptionRepo: redemptionRepo,
		queueClient:    queueClient,
		now:            time.Now,
	}
}

// ReserveCouponInput 预占参数
type ReserveCouponInput struct {
	Code           string
	CustomerID     uint
	OrderReference string
	CartSubtotal   models.Money
	// DiscountID 定价阶段已选中的券，非零时只预占该券
	DiscountID uint
}

// ReservationOutcome 预占结果，快照字段取自预占时刻
type ReservationOutcome struct {
	DiscountID     uint          `json:"discount_id"`
	Code           string        `json:"code"`
	Kind           string        `json:"kind"`
	Value          models.Money  `json:"value"`
	MaxDiscount    *models.Money `json:"max_discount,omitempty"`
	CustomerID     uint          `json:"customer_id"`
	OrderReference string        `json:"order_reference"`
	ReservedAt     time.Time     `json:"reserved_at"`
	Replayed       bool          `json:"replayed"`
}

// Reserve 在调用方事务内依次执行：幂等占位 → 总名额条件递增 → 用户名额条件 upsert，
// 失败时逆序补偿已完成的步骤。tx 为空时自行开启事务。
func (s *CouponReservationService) Reserve(ctx context.Context, tx *gorm.DB, input ReserveCouponInput) (*ReservationOutcome, error) {
	if tx == nil {
		var outcome *ReservationOutcome
		err := s.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var err error
			outcome, err = s.Reserve(ctx, inner, input)
			return err
		})
		if err != nil {
			return nil, err
		}
		return outcome, nil
	}

	outcome, err := s.reserve(ctx, tx.WithContext(ctx), input)
	metrics.CouponReservationsTotal.WithLabelValues(reservationOutcomeLabel(outcome, err)).Inc()
	return outcome, err
}

func (s *CouponReservationService) reserve(ctx context.Context, tx *gorm.DB, input ReserveCouponInput) (*ReservationOutcome, error) {
	code, err := ValidateCouponCode(input.Code)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrCouponNotFound
	}
	if input.CustomerID == 0 {
		return nil, ErrCouponCustomerRequired
	}
	orderReference := strings.TrimSpace(input.OrderReference)
	if orderReference == "" {
		return nil, ErrOrderReferenceMissing
	}

	discountRepo := s.discountRepo.WithTx(tx)
	redemptionRepo := s.redemptionRepo.WithTx(tx)
	now := s.now()

	coupon, err := s.resolveCoupon(discountRepo, code, input.DiscountID, now)
	if err != nil {
		return nil, err
	}
	rule, err := canonicalizeDiscount(*coupon)
	if err != nil {
		logger.Debugw("coupon_reservation_invalid_record", "discount_id", coupon.ID, "error", err)
		return nil, ErrCouponNotEligible
	}

	event := &models.CouponRedemptionEvent{
		DiscountID:     coupon.ID,
		CustomerID:     input.CustomerID,
		OrderReference: orderReference,
		Code:           code,
		Kind:           rule.Kind.KindName(),
		Value:          models.NewMoneyFromDecimal(kindValue(rule.Kind)),
		CartSubtotal:   input.CartSubtotal,
		CreatedAt:      now,
	}
	if rule.MaxDiscount != nil {
		event.MaxDiscount = models.MoneyPtr(models.NewMoneyFromDecimal(*rule.MaxDiscount))
	}

	replayed := false
	// 非业务拒绝（驱动错误）时事务多已不可用，补偿只会误报，交由调用方回滚
	sg := &saga{compensable: isBusinessError}
	steps := []sagaStep{
		{
			name: "idempotency_claim",
			forward: func(context.Context) error {
				claimed, err := redemptionRepo.ClaimEvent(event)
				if err != nil {
					return fmt.Errorf("claim coupon redemption: %w", err)
				}
				replayed = !claimed
				return nil
			},
			compensate: func(context.Context) error {
				_, err := redemptionRepo.DeleteEvent(event.ID)
				return err
			},
		},
		{
			name: "global_slot",
			forward: func(context.Context) error {
				affected, err := discountRepo.ReserveUsage(coupon.ID, code, input.CartSubtotal, now)
				if err != nil {
					return fmt.Errorf("reserve coupon usage: %w", err)
				}
				if affected == 0 {
					return ErrCouponNotEligible
				}
				return nil
			},
			compensate: func(context.Context) error {
				affected, err := discountRepo.ReleaseUsage(coupon.ID)
				if err == nil && affected == 0 {
					return fmt.Errorf("release coupon usage: discount %d has no used slot", coupon.ID)
				}
				return err
			},
		},
		{
			name: "customer_slot",
			forward: func(context.Context) error {
				affected, err := redemptionRepo.ReserveCustomerSlot(coupon.ID, input.CustomerID, rule.PerUserLimit, now)
				if err != nil {
					return fmt.Errorf("reserve customer slot: %w", err)
				}
				if affected == 0 {
					return ErrPerUserLimitReached
				}
				return nil
			},
			compensate: func(context.Context) error {
				_, err := redemptionRepo.ReleaseCustomerSlot(coupon.ID, input.CustomerID)
				return err
			},
		},
	}

	for _, step := range steps {
		if err := sg.run(ctx, step); err != nil {
			if sg.skipped > 0 {
				logger.Warnw("coupon_reservation_step_failed",
					"discount_id", coupon.ID,
					"customer_id", input.CustomerID,
					"order_reference", orderReference,
					"step", step.name,
					"uncompensated_steps", sg.skipped,
					"error", err,
				)
			}
			s.reportCompensationFailures(ctx, coupon.ID, input.CustomerID, orderReference, sg.failures)
			return nil, err
		}
		if replayed {
			return s.replay(redemptionRepo, coupon.ID, input.CustomerID, orderReference)
		}
	}

	return &ReservationOutcome{
		DiscountID:     coupon.ID,
		Code:           event.Code,
		Kind:           event.Kind,
		Value:          event.Value,
		MaxDiscount:    event.MaxDiscount,
		CustomerID:     input.CustomerID,
		OrderReference: orderReference,
		ReservedAt:     now,
	}, nil
}

// resolveCoupon 按码查找平台券，多条同码时优先当前有效的一条
func (s *CouponReservationService) resolveCoupon(repo repository.DiscountRepository, code string, discountID uint, now time.Time) (*models.Discount, error) {
	if discountID != 0 {
		coupon, err := repo.GetByID(discountID)
		if err != nil {
			return nil, err
		}
		if coupon == nil || !strings.EqualFold(strings.TrimSpace(coupon.Code), code) ||
			coupon.Authority != constants.DiscountAuthorityPlatform || coupon.CodeType != constants.DiscountCodeTypeCoupon {
			return nil, ErrCouponNotFound
		}
		return coupon, nil
	}

	coupons, err := repo.ListCouponsByCode(code)
	if err != nil {
		return nil, err
	}
	if len(coupons) == 0 {
		return nil, ErrCouponNotFound
	}
	for i := range coupons {
		if discountRecordActive(coupons[i], now) {
			return &coupons[i], nil
		}
	}
	return &coupons[0], nil
}

// replay 同一订单重复预占时返回首次记录的结果，不再改动计数
func (s *CouponReservationService) replay(repo repository.CouponRedemptionRepository, discountID, customerID uint, orderReference string) (*ReservationOutcome, error) {
	existing, err := repo.GetEvent(discountID, customerID, orderReference)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("coupon redemption event missing for order %s", orderReference)
	}
	logger.Infow("coupon_reservation_replayed",
		"discount_id", discountID,
		"customer_id", customerID,
		"order_reference", orderReference,
	)
	return &ReservationOutcome{
		DiscountID:     existing.DiscountID,
		Code:           existing.Code,
		Kind:           existing.Kind,
		Value:          existing.Value,
		MaxDiscount:    existing.MaxDiscount,
		CustomerID:     existing.CustomerID,
		OrderReference: existing.OrderReference,
		ReservedAt:     existing.CreatedAt,
		Replayed:       true,
	}, nil
}

// reportCompensationFailures 补偿失败属于严重不一致，只记录并投递对账任务，不自动重试
func (s *CouponReservationService) reportCompensationFailures(ctx context.Context, discountID, customerID uint, orderReference string, failures []compensationFailure) {
	if len(failures) == 0 {
		return
	}
	for _, failure := range failures {
		logger.Criticalw("coupon_reservation_compensation_failed",
			"discount_id", discountID,
			"customer_id", customerID,
			"order_reference", orderReference,
			"step", failure.step,
			"error", failure.err,
		)
		metrics.CouponCompensationFailuresTotal.WithLabelValues(failure.step).Inc()
	}
	payload := queue.CouponUsageAuditPayload{
		DiscountID:     discountID,
		CustomerID:     customerID,
		OrderReference: orderReference,
		Reason:         "compensation_failed",
	}
	if err := s.queueClient.EnqueueCouponUsageAudit(ctx, payload); err != nil {
		logger.Criticalw("coupon_usage_audit_enqueue_failed",
			"discount_id", discountID,
			"order_reference", orderReference,
			"error", err,
		)
	}
}

func reservationOutcomeLabel(outcome *ReservationOutcome, err error) string {
	switch {
	case err == nil && outcome != nil && outcome.Replayed:
		return constants.ReservationOutcomeReplayed
	case err == nil:
		return constants.ReservationOutcomeReserved
	case errors.Is(err, ErrCouponNotFound):
		return constants.ReservationOutcomeNotFound
	case errors.Is(err, ErrCouponNotEligible):
		return constants.ReservationOutcomeNotEligible
	case errors.Is(err, ErrPerUserLimitReached):
		return constants.ReservationOutcomePerUserLimit
	case errors.Is(err, ErrCouponCustomerRequired):
		return constants.ReservationOutcomeCustomerMissing
	default:
		return constants.ReservationOutcomeError
	}
}
