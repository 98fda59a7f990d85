package service

import (
	"fmt"

	"github.com/bazaar-next/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AppliedDiscount 已应用优惠的引用快照（供佣金与发票使用）
type AppliedDiscount struct {
	ID        uint         `json:"id"`
	Name      string       `json:"name,omitempty"`
	Authority Authority    `json:"authority"`
	Kind      string       `json:"kind"`
	Value     models.Money `json:"value"`
	Code      string       `json:"code,omitempty"`
}

// LinePricing 单行定价明细
type LinePricing struct {
	ProductID        uint             `json:"product_id"`
	SellerID         uint             `json:"seller_id"`
	CategoryID       uint             `json:"category_id"`
	Quantity         int              `json:"quantity"`
	UnitPrice        models.Money     `json:"unit_price"`
	Base             models.Money     `json:"base"`
	SellerDiscount   models.Money     `json:"seller_discount"`
	PlatformDiscount models.Money     `json:"platform_discount"`
	Final            models.Money     `json:"final"`
	SellerApplied    *AppliedDiscount `json:"seller_applied,omitempty"`
	PlatformApplied  *AppliedDiscount `json:"platform_applied,omitempty"`
}

// PricingTotals 整单合计
type PricingTotals struct {
	Subtotal              models.Money `json:"subtotal"`
	SellerDiscountTotal   models.Money `json:"seller_discount_total"`
	PlatformDiscountTotal models.Money `json:"platform_discount_total"`
	DiscountedSubtotal    models.Money `json:"discounted_subtotal"`
	ShippingFee           models.Money `json:"shipping_fee"`
	ShippingDiscount      models.Money `json:"shipping_discount"`
	ShippingDue           models.Money `json:"shipping_due"`
	GrandTotal            models.Money `json:"grand_total"`
}

// PricingResult 定价结果
type PricingResult struct {
	Currency         string           `json:"currency"`
	Lines            []LinePricing    `json:"lines"`
	Totals           PricingTotals    `json:"totals"`
	PriceDiscount    *AppliedDiscount `json:"price_discount,omitempty"`
	ShippingDiscount *AppliedDiscount `json:"shipping_discount,omitempty"`
	AppliedCoupon    *AppliedDiscount `json:"applied_coupon,omitempty"`
	Warnings         []PricingWarning `json:"warnings,omitempty"`

	coupon *DiscountRule
}

// ApplyDiscounts 先按行计算店铺优惠，再在店铺优惠后的剩余金额上计算平台优惠
func ApplyDiscounts(lines []Line, selection *Selection, shippingFee decimal.Decimal) (*PricingResult, error) {
	if selection == nil {
		selection = &Selection{}
	}
	result := &PricingResult{Lines: make([]LinePricing, len(lines))}

	remainders := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		var sellerRule *DiscountRule
		if i < len(selection.SellerDiscounts) {
			sellerRule = selection.SellerDiscounts[i]
		}
		sellerDiscount := sellerLineDiscount(sellerRule, line.Base)
		remainders[i] = line.Base.Sub(sellerDiscount)
		result.Lines[i] = LinePricing{
			ProductID:      line.ProductID,
			SellerID:       line.SellerID,
			CategoryID:     line.CategoryID,
			Quantity:       line.Quantity,
			UnitPrice:      models.NewMoneyFromDecimal(line.UnitPrice),
			Base:           models.NewMoneyFromDecimal(line.Base),
			SellerDiscount: models.NewMoneyFromDecimal(sellerDiscount),
		}
		if sellerRule != nil && sellerDiscount.IsPositive() {
			result.Lines[i].SellerApplied = sellerRule.Applied()
		}
	}

	platformDiscounts := make([]decimal.Decimal, len(lines))
	if rule := selection.PriceDiscount; rule != nil {
		allocations, err := platformAllocations(rule, lines, remainders)
		if err != nil {
			return nil, err
		}
		platformDiscounts = allocations
		for i, amount := range allocations {
			if amount.IsPositive() {
				result.Lines[i].PlatformApplied = rule.Applied()
			}
		}
		result.PriceDiscount = rule.Applied()
	}

	subtotal := decimal.Zero
	sellerTotal := decimal.Zero
	platformTotal := decimal.Zero
	discounted := decimal.Zero
	for i := range result.Lines {
		platformDiscount := platformDiscounts[i]
		final := remainders[i].Sub(platformDiscount)
		result.Lines[i].PlatformDiscount = models.NewMoneyFromDecimal(platformDiscount)
		result.Lines[i].Final = models.NewMoneyFromDecimal(final)

		subtotal = subtotal.Add(lines[i].Base)
		sellerTotal = sellerTotal.Add(result.Lines[i].SellerDiscount.Decimal)
		platformTotal = platformTotal.Add(platformDiscount)
		discounted = discounted.Add(final)
	}

	fee := shippingFee.Round(moneyPlaces)
	if fee.IsNegative() {
		fee = decimal.Zero
	}
	shippingDiscount := decimal.Zero
	if selection.ShippingDiscount != nil {
		shippingDiscount = fee
		result.ShippingDiscount = selection.ShippingDiscount.Applied()
	}
	shippingDue := decimal.Max(decimal.Zero, fee.Sub(shippingDiscount))

	result.Totals = PricingTotals{
		Subtotal:              models.NewMoneyFromDecimal(subtotal),
		SellerDiscountTotal:   models.NewMoneyFromDecimal(sellerTotal),
		PlatformDiscountTotal: models.NewMoneyFromDecimal(platformTotal),
		DiscountedSubtotal:    models.NewMoneyFromDecimal(discounted),
		ShippingFee:           models.NewMoneyFromDecimal(fee),
		ShippingDiscount:      models.NewMoneyFromDecimal(shippingDiscount),
		ShippingDue:           models.NewMoneyFromDecimal(shippingDue),
		GrandTotal:            models.NewMoneyFromDecimal(discounted.Add(shippingDue)),
	}

	// 价格券需实际产生优惠才算已使用
	if coupon := selection.Coupon; coupon != nil && ((coupon == selection.PriceDiscount && platformTotal.IsPositive()) || coupon == selection.ShippingDiscount) {
		result.AppliedCoupon = coupon.Applied()
		result.coupon = coupon
	}
	return result, nil
}

// sellerLineDiscount 店铺优惠按行计算，封顶后限制在 [0, base]
func sellerLineDiscount(rule *DiscountRule, base decimal.Decimal) decimal.Decimal {
	if rule == nil || !base.IsPositive() {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch kind := rule.Kind.(type) {
	case PercentageOff:
		amount = base.Mul(kind.Rate).Div(hundred).Round(moneyPlaces)
	case FlatOff:
		amount = kind.Amount.Round(moneyPlaces)
	case FreeShipping:
		return decimal.Zero
	default:
		panic(fmt.Sprintf("unhandled discount kind %T", rule.Kind))
	}
	if rule.MaxDiscount != nil {
		amount = decimal.Min(amount, *rule.MaxDiscount)
	}
	return clampDecimal(amount, decimal.Zero, base)
}

// platformAllocations 平台优惠只分摊到范围内的行，金额以店铺优惠后的剩余金额为基数
func platformAllocations(rule *DiscountRule, lines []Line, remainders []decimal.Decimal) ([]decimal.Decimal, error) {
	capacities := make([]decimal.Decimal, len(lines))
	eligible := decimal.Zero
	for i, line := range lines {
		capacities[i] = decimal.Zero
		if rule.matchesLine(line) && remainders[i].IsPositive() {
			capacities[i] = remainders[i]
			eligible = eligible.Add(remainders[i])
		}
	}

	var amount decimal.Decimal
	switch kind := rule.Kind.(type) {
	case PercentageOff:
		amount = eligible.Mul(kind.Rate).Div(hundred).Round(moneyPlaces)
	case FlatOff:
		amount = kind.Amount
	case FreeShipping:
		return make([]decimal.Decimal, len(lines)), nil
	default:
		panic(fmt.Sprintf("unhandled discount kind %T", rule.Kind))
	}
	if rule.MaxDiscount != nil {
		amount = decimal.Min(amount, *rule.MaxDiscount)
	}
	amount = clampDecimal(amount, decimal.Zero, eligible)
	return prorate(amount, capacities)
}
