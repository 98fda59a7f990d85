package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func createLimitedCoupon(t *testing.T, f *serviceFixture, code string, total, perUser int) *models.Discount {
	t.Helper()
	discount := &models.Discount{
		Name:            code,
		Authority:       constants.DiscountAuthorityPlatform,
		CodeType:        constants.DiscountCodeTypeCoupon,
		Code:            code,
		Kind:            constants.DiscountKindFlat,
		Value:           moneyOf(5),
		MinCartSubtotal: moneyOf(50),
	}
	if total > 0 {
		discount.UsageLimitTotal = intPtr(total)
	}
	if perUser > 0 {
		discount.PerUserLimit = intPtr(perUser)
	}
	return f.createDiscount(t, discount)
}

func countRedemptionEvents(t *testing.T, f *serviceFixture, discountID uint) int64 {
	t.Helper()
	count, err := f.redemptionRepo.CountEvents(discountID)
	if err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	return count
}

// 测试库只有一个连接，各事务在连接池上排队而非真正交错执行；
// 条件更新的并发交错由 repository 包 integration 标签下的 PostgreSQL 用例覆盖
func TestReserveCouponConcurrentRequestsRespectGlobalLimit(t *testing.T) {
	f := newServiceFixture(t, "reserve_concurrent")
	coupon := createLimitedCoupon(t, f, "FLASH", 3, 0)

	var reserved, rejected int64
	var group errgroup.Group
	for i := 1; i <= 10; i++ {
		customerID := uint(i)
		group.Go(func() error {
			_, err := f.reservation.Reserve(context.Background(), nil, ReserveCouponInput{
				Code:           "flash",
				CustomerID:     customerID,
				OrderReference: fmt.Sprintf("ORDER-%d", customerID),
				CartSubtotal:   moneyOf(100),
			})
			switch {
			case err == nil:
				atomic.AddInt64(&reserved, 1)
			case errors.Is(err, ErrCouponNotEligible):
				atomic.AddInt64(&rejected, 1)
			default:
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent reserve failed: %v", err)
	}
	if reserved != 3 || rejected != 7 {
		t.Fatalf("want 3 reserved and 7 rejected, got %d/%d", reserved, rejected)
	}
	if stored := f.reloadDiscount(t, coupon.ID); stored.UsedCount != 3 {
		t.Fatalf("used count want 3 got %d", stored.UsedCount)
	}
	if events := countRedemptionEvents(t, f, coupon.ID); events != 3 {
		t.Fatalf("redemption events want 3 got %d", events)
	}
}

func TestReserveCouponPerUserLimit(t *testing.T) {
	f := newServiceFixture(t, "reserve_per_user")
	coupon := createLimitedCoupon(t, f, "ONCE", 10, 1)
	ctx := context.Background()

	outcome, err := f.reservation.Reserve(ctx, nil, ReserveCouponInput{Code: "ONCE", CustomerID: 7, OrderReference: "A", CartSubtotal: moneyOf(60)})
	if err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}
	if outcome.Code != "ONCE" || outcome.Kind != constants.DiscountKindFlat || !outcome.Value.Equal(dec("5")) {
		t.Fatalf("reservation snapshot mismatch: %+v", outcome)
	}

	_, err = f.reservation.Reserve(ctx, nil, ReserveCouponInput{Code: "ONCE", CustomerID: 7, OrderReference: "B", CartSubtotal: moneyOf(60)})
	if !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("second reservation want ErrPerUserLimitReached got %v", err)
	}
	if stored := f.reloadDiscount(t, coupon.ID); stored.UsedCount != 1 {
		t.Fatalf("rejected reservation must not keep a global slot, used_count=%d", stored.UsedCount)
	}
	if events := countRedemptionEvents(t, f, coupon.ID); events != 1 {
		t.Fatalf("rejected reservation must not keep an event, got %d", events)
	}

	if _, err := f.reservation.Reserve(ctx, nil, ReserveCouponInput{Code: "ONCE", CustomerID: 8, OrderReference: "C", CartSubtotal: moneyOf(60)}); err != nil {
		t.Fatalf("another customer should still reserve: %v", err)
	}
}

func TestReserveCouponReplaysSameOrder(t *testing.T) {
	f := newServiceFixture(t, "reserve_replay")
	coupon := createLimitedCoupon(t, f, "REPLAY", 10, 1)
	ctx := context.Background()
	input := ReserveCouponInput{Code: "REPLAY", CustomerID: 3, OrderReference: "ORDER-R", CartSubtotal: moneyOf(80)}

	first, err := f.reservation.Reserve(ctx, nil, input)
	if err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}
	second, err := f.reservation.Reserve(ctx, nil, input)
	if err != nil {
		t.Fatalf("replayed reservation failed: %v", err)
	}
	if !second.Replayed || first.Replayed {
		t.Fatalf("only the second call should be a replay: first=%v second=%v", first.Replayed, second.Replayed)
	}
	if second.DiscountID != coupon.ID || second.Code != first.Code {
		t.Fatalf("replay should return the original snapshot, got %+v", second)
	}
	if stored := f.reloadDiscount(t, coupon.ID); stored.UsedCount != 1 {
		t.Fatalf("replay must not consume another slot, used_count=%d", stored.UsedCount)
	}
	counters, err := f.redemptionRepo.ListCounters(coupon.ID)
	if err != nil || len(counters) != 1 || counters[0].UsedCount != 1 {
		t.Fatalf("customer counter want 1 got %+v err=%v", counters, err)
	}
}

func TestReserveCouponRejections(t *testing.T) {
	f := newServiceFixture(t, "reserve_rejections")
	createLimitedCoupon(t, f, "GATE", 10, 0)
	expired := createLimitedCoupon(t, f, "OLD", 10, 0)
	if err := f.db.Model(expired).Update("ends_at", fixtureNow.AddDate(0, 0, -1)).Error; err != nil {
		t.Fatalf("expire coupon failed: %v", err)
	}
	ctx := context.Background()

	cases := []struct {
		name  string
		input ReserveCouponInput
		want  error
	}{
		{name: "unknown code", input: ReserveCouponInput{Code: "NOPE", CustomerID: 1, OrderReference: "X", CartSubtotal: moneyOf(100)}, want: ErrCouponNotFound},
		{name: "malformed code", input: ReserveCouponInput{Code: "!!", CustomerID: 1, OrderReference: "X", CartSubtotal: moneyOf(100)}, want: ErrInvalidCouponFormat},
		{name: "anonymous customer", input: ReserveCouponInput{Code: "GATE", OrderReference: "X", CartSubtotal: moneyOf(100)}, want: ErrCouponCustomerRequired},
		{name: "missing reference", input: ReserveCouponInput{Code: "GATE", CustomerID: 1, CartSubtotal: moneyOf(100)}, want: ErrOrderReferenceMissing},
		{name: "below threshold", input: ReserveCouponInput{Code: "GATE", CustomerID: 1, OrderReference: "X", CartSubtotal: moneyOf(49)}, want: ErrCouponNotEligible},
		{name: "expired", input: ReserveCouponInput{Code: "OLD", CustomerID: 1, OrderReference: "X", CartSubtotal: moneyOf(100)}, want: ErrCouponNotEligible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.reservation.Reserve(ctx, nil, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

// releaseFailingDiscountRepo 归还总名额时失败，用于验证补偿失败路径
type releaseFailingDiscountRepo struct {
	repository.DiscountRepository
	releaseCalls *int64
}

func (r releaseFailingDiscountRepo) ReleaseUsage(id uint) (int64, error) {
	atomic.AddInt64(r.releaseCalls, 1)
	return 0, errors.New("release usage unavailable")
}

func (r releaseFailingDiscountRepo) WithTx(tx *gorm.DB) repository.DiscountRepository {
	return releaseFailingDiscountRepo{DiscountRepository: r.DiscountRepository.WithTx(tx), releaseCalls: r.releaseCalls}
}

func TestReserveCouponCompensationFailureKeepsOriginalError(t *testing.T) {
	f := newServiceFixture(t, "reserve_compensation_failure")
	coupon := createLimitedCoupon(t, f, "FRAGILE", 10, 1)
	ctx := context.Background()

	var releaseCalls int64
	failing := NewCouponReservationService(f.db, releaseFailingDiscountRepo{DiscountRepository: f.discountRepo, releaseCalls: &releaseCalls}, f.redemptionRepo, nil)
	failing.now = f.reservation.now

	if _, err := failing.Reserve(ctx, nil, ReserveCouponInput{Code: "FRAGILE", CustomerID: 5, OrderReference: "F-1", CartSubtotal: moneyOf(100)}); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}
	_, err := failing.Reserve(ctx, nil, ReserveCouponInput{Code: "FRAGILE", CustomerID: 5, OrderReference: "F-2", CartSubtotal: moneyOf(100)})
	if !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("compensation failure must not mask the original error, got %v", err)
	}
	if atomic.LoadInt64(&releaseCalls) != 1 {
		t.Fatalf("global slot compensation should run once, got %d", releaseCalls)
	}
	if stored := f.reloadDiscount(t, coupon.ID); stored.UsedCount != 1 {
		t.Fatalf("surrounding transaction should still roll back, used_count=%d", stored.UsedCount)
	}
}

// slotErrorRedemptionRepo 用户名额写入返回驱动错误
type slotErrorRedemptionRepo struct {
	repository.CouponRedemptionRepository
}

func (r slotErrorRedemptionRepo) ReserveCustomerSlot(discountID, customerID uint, limit int, now time.Time) (int64, error) {
	return 0, errors.New("driver: connection reset")
}

func (r slotErrorRedemptionRepo) WithTx(tx *gorm.DB) repository.CouponRedemptionRepository {
	return slotErrorRedemptionRepo{CouponRedemptionRepository: r.CouponRedemptionRepository.WithTx(tx)}
}

func TestReserveCouponDriverErrorSkipsCompensation(t *testing.T) {
	f := newServiceFixture(t, "reserve_driver_error")
	coupon := createLimitedCoupon(t, f, "DRIVER", 10, 1)
	ctx := context.Background()

	var releaseCalls int64
	svc := NewCouponReservationService(f.db,
		releaseFailingDiscountRepo{DiscountRepository: f.discountRepo, releaseCalls: &releaseCalls},
		slotErrorRedemptionRepo{CouponRedemptionRepository: f.redemptionRepo},
		nil,
	)
	svc.now = f.reservation.now

	_, err := svc.Reserve(ctx, nil, ReserveCouponInput{Code: "DRIVER", CustomerID: 5, OrderReference: "D-1", CartSubtotal: moneyOf(100)})
	if err == nil || isBusinessError(err) {
		t.Fatalf("driver failure should surface as a system error, got %v", err)
	}
	if atomic.LoadInt64(&releaseCalls) != 0 {
		t.Fatalf("driver failure must leave cleanup to the transaction rollback, release calls=%d", releaseCalls)
	}
	if stored := f.reloadDiscount(t, coupon.ID); stored.UsedCount != 0 {
		t.Fatalf("rolled back reservation should not consume a slot, used_count=%d", stored.UsedCount)
	}
	if count := countRedemptionEvents(t, f, coupon.ID); count != 0 {
		t.Fatalf("rolled back reservation should leave no event, got %d", count)
	}
}

func TestReserveCouponInCallerTransactionRollsBackWithCaller(t *testing.T) {
	f := newServiceFixture(t, "reserve_caller_tx")
	coupon := createLimitedCoupon(t, f, "TXBOUND", 10, 0)
	ctx := context.Background()

	abort := errors.New("order insert failed")
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.reservation.Reserve(ctx, tx, ReserveCouponInput{Code: "TXBOUND", CustomerID: 1, OrderReference: "T-1", CartSubtotal: moneyOf(100)}); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("transaction want abort error got %v", err)
	}
	if stored := f.reloadDiscount(t, coupon.ID); stored.UsedCount != 0 {
		t.Fatalf("caller rollback should release the slot, used_count=%d", stored.UsedCount)
	}
	if events := countRedemptionEvents(t, f, coupon.ID); events != 0 {
		t.Fatalf("caller rollback should drop the event, got %d", events)
	}
}

func TestReservationOutcomeLabel(t *testing.T) {
	cases := []struct {
		outcome *ReservationOutcome
		err     error
		want    string
	}{
		{outcome: &ReservationOutcome{}, want: constants.ReservationOutcomeReserved},
		{outcome: &ReservationOutcome{Replayed: true}, want: constants.ReservationOutcomeReplayed},
		{err: fmt.Errorf("wrap: %w", ErrCouponNotFound), want: constants.ReservationOutcomeNotFound},
		{err: ErrPerUserLimitReached, want: constants.ReservationOutcomePerUserLimit},
		{err: errors.New("boom"), want: constants.ReservationOutcomeError},
	}
	for _, tc := range cases {
		if got := reservationOutcomeLabel(tc.outcome, tc.err); got != tc.want {
			t.Fatalf("label want %s got %s", tc.want, got)
		}
	}
}
