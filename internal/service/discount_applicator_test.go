package service

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplyDiscountsSave10Scenario(t *testing.T) {
	lines := []Line{testLine(1, 1, 10, "1000"), testLine(2, 2, 20, "2000")}
	seller := sellerRule(1, 1, ScopeStore, flat("100"))
	coupon := couponRule(2, "SAVE10", percent("10"))
	maxDiscount := dec("200")
	coupon.MaxDiscount = &maxDiscount

	selection := SelectDiscounts(lines, []DiscountRule{seller, coupon}, "SAVE10")
	result, err := ApplyDiscounts(lines, selection, dec("150"))
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}

	totals := result.Totals
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"subtotal", totals.Subtotal.Decimal, "3000"},
		{"seller discount", totals.SellerDiscountTotal.Decimal, "100"},
		{"platform discount", totals.PlatformDiscountTotal.Decimal, "200"},
		{"discounted subtotal", totals.DiscountedSubtotal.Decimal, "2700"},
		{"shipping due", totals.ShippingDue.Decimal, "150"},
		{"grand total", totals.GrandTotal.Decimal, "2850"},
		{"line A seller", result.Lines[0].SellerDiscount.Decimal, "100"},
		{"line B seller", result.Lines[1].SellerDiscount.Decimal, "0"},
		{"line A platform", result.Lines[0].PlatformDiscount.Decimal, "62.06"},
		{"line B platform", result.Lines[1].PlatformDiscount.Decimal, "137.94"},
		{"line A final", result.Lines[0].Final.Decimal, "837.94"},
		{"line B final", result.Lines[1].Final.Decimal, "1862.06"},
	}
	for _, check := range checks {
		if !check.got.Equal(dec(check.want)) {
			t.Fatalf("%s want %s got %s", check.name, check.want, check.got)
		}
	}
	if result.AppliedCoupon == nil || result.AppliedCoupon.Code != "SAVE10" {
		t.Fatalf("SAVE10 should be reported as applied, got %+v", result.AppliedCoupon)
	}
	if result.Lines[0].SellerApplied == nil || result.Lines[1].SellerApplied != nil {
		t.Fatalf("seller snapshot should only be on line A")
	}
}

func TestApplyDiscountsSellerCaps(t *testing.T) {
	lines := []Line{testLine(1, 1, 10, "100"), testLine(2, 1, 10, "20")}
	capped := sellerRule(1, 1, ScopeStore, percent("50"))
	maxDiscount := dec("30")
	capped.MaxDiscount = &maxDiscount

	selection := &Selection{SellerDiscounts: []*DiscountRule{&capped, nil}}
	result, err := ApplyDiscounts(lines, selection, decimal.Zero)
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}
	if !result.Lines[0].SellerDiscount.Equal(dec("30")) {
		t.Fatalf("percentage seller discount should be capped at 30, got %s", result.Lines[0].SellerDiscount)
	}

	oversized := sellerRule(2, 1, ScopeStore, flat("50"))
	selection = &Selection{SellerDiscounts: []*DiscountRule{nil, &oversized}}
	result, err = ApplyDiscounts(lines, selection, decimal.Zero)
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}
	if !result.Lines[1].SellerDiscount.Equal(dec("20")) || !result.Lines[1].Final.IsZero() {
		t.Fatalf("flat discount above base should clamp to base, got %+v", result.Lines[1])
	}
}

func TestApplyDiscountsPlatformOnlySpreadsOverScopedLines(t *testing.T) {
	lines := []Line{testLine(1, 1, 10, "100"), testLine(2, 2, 20, "300")}
	categoryOnly := platformRule(1, flat("50"))
	categoryOnly.Scope = ScopeCategory
	categoryOnly.CategoryIDs = map[uint]struct{}{20: {}}

	result, err := ApplyDiscounts(lines, &Selection{PriceDiscount: &categoryOnly}, decimal.Zero)
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}
	if !result.Lines[0].PlatformDiscount.IsZero() || result.Lines[0].PlatformApplied != nil {
		t.Fatalf("out of scope line must not carry platform discount")
	}
	if !result.Lines[1].PlatformDiscount.Equal(dec("50")) {
		t.Fatalf("scoped line should carry the whole flat amount, got %s", result.Lines[1].PlatformDiscount)
	}
}

func TestApplyDiscountsFreeShipping(t *testing.T) {
	lines := []Line{testLine(1, 1, 10, "100")}
	shipping := platformRule(1, FreeShipping{})
	shipping.Scope = ScopeShipping

	result, err := ApplyDiscounts(lines, &Selection{ShippingDiscount: &shipping}, dec("12.50"))
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}
	if !result.Totals.ShippingDiscount.Equal(dec("12.50")) || !result.Totals.ShippingDue.IsZero() {
		t.Fatalf("free shipping should waive the full fee, got %+v", result.Totals)
	}
	if !result.Totals.GrandTotal.Equal(dec("100")) {
		t.Fatalf("grand total want 100 got %s", result.Totals.GrandTotal)
	}

	result, err = ApplyDiscounts(lines, &Selection{}, dec("-5"))
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}
	if !result.Totals.ShippingFee.IsZero() {
		t.Fatalf("negative shipping fee should be treated as zero")
	}
}

func TestApplyDiscountsUnusedPriceCouponIsNotApplied(t *testing.T) {
	lines := []Line{testLine(1, 1, 10, "100")}
	seller := sellerRule(1, 1, ScopeStore, flat("100"))
	coupon := couponRule(2, "SAVE10", percent("10"))

	selection := SelectDiscounts(lines, []DiscountRule{seller, coupon}, "SAVE10")
	result, err := ApplyDiscounts(lines, selection, decimal.Zero)
	if err != nil {
		t.Fatalf("apply discounts failed: %v", err)
	}
	if result.AppliedCoupon != nil {
		t.Fatalf("coupon that yields no discount must not be reported as applied")
	}
}

func TestApplyDiscountsRandomizedConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iteration := 0; iteration < 500; iteration++ {
		count := 1 + rng.Intn(5)
		lines := make([]Line, count)
		for i := range lines {
			price := decimal.New(int64(1+rng.Intn(50000)), -2)
			quantity := 1 + rng.Intn(3)
			lines[i] = Line{
				ProductID:  uint(i + 1),
				SellerID:   uint(1 + rng.Intn(3)),
				CategoryID: uint(10 + rng.Intn(2)),
				UnitPrice:  price,
				Quantity:   quantity,
				Base:       price.Mul(decimal.NewFromInt(int64(quantity))),
			}
		}

		rules := []DiscountRule{
			sellerRule(1, 1, ScopeStore, flat(decimal.New(int64(rng.Intn(20000)+1), -2).String())),
			sellerRule(2, 2, ScopeStore, percent(decimal.NewFromInt(int64(1+rng.Intn(100))).String())),
		}
		var platform DiscountRule
		if rng.Intn(2) == 0 {
			platform = platformRule(3, flat(decimal.New(int64(rng.Intn(100000)+1), -2).String()))
		} else {
			platform = platformRule(3, percent(decimal.NewFromInt(int64(1+rng.Intn(100))).String()))
			if rng.Intn(2) == 0 {
				maxDiscount := decimal.New(int64(rng.Intn(5000)+1), -2)
				platform.MaxDiscount = &maxDiscount
			}
		}
		if rng.Intn(3) == 0 {
			platform.Scope = ScopeCategory
			platform.CategoryIDs = map[uint]struct{}{10: {}}
		}
		rules = append(rules, platform)

		result, err := ApplyDiscounts(lines, SelectDiscounts(lines, rules, ""), decimal.Zero)
		if err != nil {
			t.Fatalf("iteration %d: apply discounts failed: %v", iteration, err)
		}
		totals := result.Totals
		finals := decimal.Zero
		for i, line := range result.Lines {
			if line.Final.IsNegative() {
				t.Fatalf("iteration %d: line %d final negative %s", iteration, i, line.Final)
			}
			sum := line.SellerDiscount.Add(line.PlatformDiscount.Decimal).Add(line.Final.Decimal)
			if !sum.Equal(line.Base.Decimal) {
				t.Fatalf("iteration %d: line %d discounts and final %s do not add up to base %s", iteration, i, sum, line.Base)
			}
			finals = finals.Add(line.Final.Decimal)
		}
		if !finals.Equal(totals.DiscountedSubtotal.Decimal) {
			t.Fatalf("iteration %d: line finals %s != discounted subtotal %s", iteration, finals, totals.DiscountedSubtotal)
		}
		expected := totals.Subtotal.Sub(totals.SellerDiscountTotal.Decimal).Sub(totals.PlatformDiscountTotal.Decimal)
		if !expected.Equal(totals.DiscountedSubtotal.Decimal) {
			t.Fatalf("iteration %d: totals do not conserve: %+v", iteration, totals)
		}
	}
}
