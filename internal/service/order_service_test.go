package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
)

func TestCreateOrderSnapshotsPricingAndCoupon(t *testing.T) {
	f := newServiceFixture(t, "order_create_snapshot")
	productA, productB, coupon := f.seedSave10(t)
	ctx := context.Background()

	result, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		CustomerID:     11,
		OrderReference: "ORDER-SAVE10",
		Lines:          cartLines(productA, productB),
		CouponCode:     "save10",
		ShippingFee:    moneyOf(150),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	order := result.Order
	if result.Replayed {
		t.Fatalf("first create should not be a replay")
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("order status want %s got %s", constants.OrderStatusPendingPayment, order.Status)
	}
	if !order.TotalAmount.Equal(dec("2850")) || !order.PlatformDiscountAmount.Equal(dec("200")) || !order.SellerDiscountAmount.Equal(dec("100")) {
		t.Fatalf("order totals mismatch: total=%s platform=%s seller=%s", order.TotalAmount, order.PlatformDiscountAmount, order.SellerDiscountAmount)
	}
	if order.CouponID == nil || *order.CouponID != coupon.ID || order.CouponCode != "SAVE10" {
		t.Fatalf("coupon snapshot mismatch: %+v", order)
	}
	if order.CouponValue == nil || !order.CouponValue.Equal(dec("10")) || order.CouponKind != constants.DiscountKindPercentage {
		t.Fatalf("coupon value snapshot mismatch: kind=%s value=%v", order.CouponKind, order.CouponValue)
	}

	stored, err := f.orders.GetOrder(ctx, 11, "ORDER-SAVE10")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("order items want 2 got %d", len(stored.Items))
	}
	first := stored.Items[0]
	if first.SellerDiscountID == nil || !first.SellerDiscount.Equal(dec("100")) || first.SellerDiscountKind != constants.DiscountKindFlat {
		t.Fatalf("seller discount snapshot missing on line A: %+v", first)
	}
	if first.PlatformDiscountID == nil || *first.PlatformDiscountID != coupon.ID || !first.PlatformDiscount.Equal(dec("62.06")) {
		t.Fatalf("platform discount snapshot mismatch on line A: %+v", first)
	}
	if !stored.Items[1].FinalAmount.Equal(dec("1862.06")) {
		t.Fatalf("line B final want 1862.06 got %s", stored.Items[1].FinalAmount)
	}

	if discount := f.reloadDiscount(t, coupon.ID); discount.UsedCount != 1 {
		t.Fatalf("coupon used_count want 1 got %d", discount.UsedCount)
	}
}

func TestCreateOrderReplaysSameReference(t *testing.T) {
	f := newServiceFixture(t, "order_create_replay")
	productA, productB, coupon := f.seedSave10(t)
	ctx := context.Background()
	input := CreateOrderInput{
		CustomerID:     11,
		OrderReference: "ORDER-REPLAY",
		Lines:          cartLines(productA, productB),
		CouponCode:     "SAVE10",
	}

	first, err := f.orders.CreateOrder(ctx, input)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := f.orders.CreateOrder(ctx, input)
	if err != nil {
		t.Fatalf("replayed create failed: %v", err)
	}
	if !second.Replayed || second.Order.ID != first.Order.ID {
		t.Fatalf("second create should replay order %d, got %+v", first.Order.ID, second)
	}
	if discount := f.reloadDiscount(t, coupon.ID); discount.UsedCount != 1 {
		t.Fatalf("replay must not consume another slot, used_count=%d", discount.UsedCount)
	}

	input.CustomerID = 12
	if _, err := f.orders.CreateOrder(ctx, input); !errors.Is(err, ErrOrderCreateFailed) {
		t.Fatalf("reference reuse by another customer want ErrOrderCreateFailed got %v", err)
	}
}

func TestCreateOrderRollsBackOnCouponRejection(t *testing.T) {
	f := newServiceFixture(t, "order_create_rollback")
	productA, productB, coupon := f.seedSave10(t)
	ctx := context.Background()

	if _, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		CustomerID:     21,
		OrderReference: "ORDER-1",
		Lines:          cartLines(productA, productB),
		CouponCode:     "SAVE10",
	}); err != nil {
		t.Fatalf("first order failed: %v", err)
	}

	_, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		CustomerID:     21,
		OrderReference: "ORDER-2",
		Lines:          cartLines(productA, productB),
		CouponCode:     "SAVE10",
	})
	if !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("second order want ErrPerUserLimitReached got %v", err)
	}
	if _, err := f.orders.GetOrder(ctx, 21, "ORDER-2"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("rejected order must not be persisted, got %v", err)
	}
	if discount := f.reloadDiscount(t, coupon.ID); discount.UsedCount != 1 {
		t.Fatalf("rejected order must not keep a slot, used_count=%d", discount.UsedCount)
	}
}

func TestCreateOrderStrictValidation(t *testing.T) {
	f := newServiceFixture(t, "order_create_strict")
	productA, _, _ := f.seedSave10(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateOrderInput
		want  error
	}{
		{name: "missing reference", input: CreateOrderInput{CustomerID: 1, Lines: cartLines(productA)}, want: ErrOrderReferenceMissing},
		{name: "empty cart", input: CreateOrderInput{CustomerID: 1, OrderReference: "R-1"}, want: ErrInvalidOrderItem},
		{name: "unknown coupon", input: CreateOrderInput{CustomerID: 1, OrderReference: "R-2", Lines: cartLines(productA), CouponCode: "GHOST"}, want: ErrCouponNotFound},
		{name: "anonymous coupon use", input: CreateOrderInput{OrderReference: "R-3", Lines: cartLines(productA), CouponCode: "SAVE10"}, want: ErrCouponCustomerRequired},
		{name: "unowned line", input: CreateOrderInput{CustomerID: 1, OrderReference: "R-4", Lines: []models.JSON{{"product_id": 999, "price": 5}}}, want: ErrInvalidOrderItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.orders.CreateOrder(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

func TestCreateOrderWithoutCoupon(t *testing.T) {
	f := newServiceFixture(t, "order_create_plain")
	productA, _, _ := f.seedSave10(t)
	ctx := context.Background()

	result, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		OrderReference: "GUEST-1",
		Lines:          cartLines(productA),
	})
	if err != nil {
		t.Fatalf("guest order without coupon failed: %v", err)
	}
	if result.Order.CouponID != nil || result.Reservation != nil {
		t.Fatalf("order without coupon must not carry a coupon snapshot")
	}
	if !result.Order.TotalAmount.Equal(dec("900")) {
		t.Fatalf("seller discount should still apply, total=%s", result.Order.TotalAmount)
	}

	orders, total, err := f.orders.ListOrders(ctx, repository.OrderListFilter{Page: 1, PageSize: 10, CustomerID: 0})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("list orders want 1 got total=%d len=%d", total, len(orders))
	}
	if _, err := f.orders.GetOrder(ctx, 5, "GUEST-1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("other customers must not read the order, got %v", err)
	}
}

func TestPreviewOrderMatchesQuote(t *testing.T) {
	f := newServiceFixture(t, "order_preview")
	productA, productB, _ := f.seedSave10(t)
	input := CreateOrderInput{Lines: cartLines(productA, productB), CouponCode: "SAVE10", ShippingFee: moneyOf(150)}

	preview, err := f.orders.PreviewOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !preview.Totals.GrandTotal.Equal(dec("2850")) {
		t.Fatalf("preview grand total want 2850 got %s", preview.Totals.GrandTotal)
	}
}
