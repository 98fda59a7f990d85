package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bazaar-next/internal/constants"

	"github.com/shopspring/decimal"
)

var couponCodePattern = regexp.MustCompile(fmt.Sprintf(`^[A-Z0-9_-]{%d,%d}$`, constants.CouponCodeMinLength, constants.CouponCodeMaxLength))

// NormalizeCouponCode 优惠码规范化：去除空白并转大写
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code))
}

// ValidateCouponCode 规范化并校验优惠码格式，空码返回空字符串
func ValidateCouponCode(code string) (string, error) {
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return "", nil
	}
	if !couponCodePattern.MatchString(normalized) {
		return "", ErrInvalidCouponFormat
	}
	return normalized, nil
}

// CouponStatus 优惠码匹配结果
type CouponStatus int

const (
	CouponNotSupplied CouponStatus = iota
	CouponApplied
	CouponUnknown
	CouponIneligible
)

// Selection 选择结果
type Selection struct {
	// SellerDiscounts 与购物车行一一对应，未命中为 nil
	SellerDiscounts  []*DiscountRule
	PriceDiscount    *DiscountRule
	ShippingDiscount *DiscountRule
	// Coupon 实际生效的优惠码（价格槽或运费槽）
	Coupon       *DiscountRule
	CouponStatus CouponStatus
}

// SelectDiscounts 确定性选择：每行至多一个店铺优惠，整单至多一个平台价格优惠，外加可选包邮
func SelectDiscounts(lines []Line, rules []DiscountRule, couponCode string) *Selection {
	selection := &Selection{SellerDiscounts: make([]*DiscountRule, len(lines))}

	sellerRules := make([]*DiscountRule, 0)
	platformRules := make([]*DiscountRule, 0)
	for i := range rules {
		rule := &rules[i]
		switch rule.Authority {
		case AuthoritySeller:
			sellerRules = append(sellerRules, rule)
		case AuthorityPlatform:
			platformRules = append(platformRules, rule)
		}
	}
	sortRules(sellerRules)
	sortRules(platformRules)

	subtotal := decimal.Zero
	sellerSubtotals := map[uint]decimal.Decimal{}
	for _, line := range lines {
		subtotal = subtotal.Add(line.Base)
		sellerSubtotals[line.SellerID] = sellerSubtotals[line.SellerID].Add(line.Base)
	}

	for i, line := range lines {
		selection.SellerDiscounts[i] = selectSellerDiscount(line, sellerRules, sellerSubtotals[line.SellerID])
	}

	var couponShipping *DiscountRule
	if couponCode != "" {
		selection.CouponStatus = CouponUnknown
		for _, rule := range platformRules {
			if !rule.Coupon || rule.Code != couponCode {
				continue
			}
			if selection.CouponStatus == CouponUnknown {
				selection.CouponStatus = CouponIneligible
			}
			if !rule.EligibleFor(subtotal) {
				continue
			}
			if rule.IsFreeShipping() {
				if couponShipping == nil {
					couponShipping = rule
				}
				continue
			}
			if !matchesAnyLine(rule, lines) {
				continue
			}
			selection.PriceDiscount = rule
			selection.Coupon = rule
			selection.CouponStatus = CouponApplied
			break
		}
	}

	if selection.PriceDiscount == nil {
		for _, rule := range platformRules {
			if rule.Coupon || rule.IsFreeShipping() {
				continue
			}
			if rule.EligibleFor(subtotal) && matchesAnyLine(rule, lines) {
				selection.PriceDiscount = rule
				break
			}
		}
	}

	// 运费槽：优惠码与包邮活动一起按排序竞争
	var campaignShipping *DiscountRule
	for _, rule := range platformRules {
		if rule.Coupon || !rule.IsFreeShipping() {
			continue
		}
		if rule.EligibleFor(subtotal) {
			campaignShipping = rule
			break
		}
	}
	shipping := campaignShipping
	if couponShipping != nil && (campaignShipping == nil || ruleOrderedBefore(couponShipping, campaignShipping)) {
		shipping = couponShipping
	}
	if shipping != nil && (selection.PriceDiscount == nil || selection.PriceDiscount.StackableWithFreeShipping) {
		selection.ShippingDiscount = shipping
		if shipping == couponShipping {
			selection.Coupon = shipping
			selection.CouponStatus = CouponApplied
		}
	}
	return selection
}

// selectSellerDiscount 商品 > 分类 > 店铺，首个非空层级胜出，层级间不合并
func selectSellerDiscount(line Line, rules []*DiscountRule, sellerSubtotal decimal.Decimal) *DiscountRule {
	for _, tier := range []ScopeTier{ScopeProduct, ScopeCategory, ScopeStore} {
		for _, rule := range rules {
			if rule.Scope != tier || rule.SellerID != line.SellerID || rule.IsFreeShipping() {
				continue
			}
			if !rule.matchesLine(line) || !rule.EligibleFor(sellerSubtotal) {
				continue
			}
			return rule
		}
	}
	return nil
}

func matchesAnyLine(rule *DiscountRule, lines []Line) bool {
	for _, line := range lines {
		if rule.matchesLine(line) {
			return true
		}
	}
	return false
}

// sortRules 优先级降序，其次更新时间、创建时间降序，最后按ID降序保证全序
func sortRules(rules []*DiscountRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return ruleOrderedBefore(rules[i], rules[j])
	})
}

func ruleOrderedBefore(a, b *DiscountRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s CouponStatus) String() string {
	switch s {
	case CouponNotSupplied:
		return "not_supplied"
	case CouponApplied:
		return "applied"
	case CouponUnknown:
		return "unknown"
	case CouponIneligible:
		return "ineligible"
	default:
		return fmt.Sprintf("coupon_status(%d)", int(s))
	}
}
