package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"github.com/shopspring/decimal"
)

// Authority 优惠出资方
type Authority int

const (
	AuthorityPlatform Authority = iota + 1
	AuthoritySeller
)

// String 返回出资方标识
func (a Authority) String() string {
	switch a {
	case AuthorityPlatform:
		return constants.DiscountAuthorityPlatform
	case AuthoritySeller:
		return constants.DiscountAuthoritySeller
	default:
		return ""
	}
}

// MarshalJSON 输出出资方标识
func (a Authority) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// DiscountKind 优惠类型，仅允许本包内的三种实现
type DiscountKind interface {
	KindName() string
	discountKind()
}

// PercentageOff 百分比折扣
type PercentageOff struct {
	Rate decimal.Decimal
}

// FlatOff 固定金额立减
type FlatOff struct {
	Amount decimal.Decimal
}

// FreeShipping 免运费
type FreeShipping struct{}

func (PercentageOff) discountKind() {}
func (FlatOff) discountKind()       {}
func (FreeShipping) discountKind()  {}

// KindName 类型名称
func (PercentageOff) KindName() string { return constants.DiscountKindPercentage }

// KindName 类型名称
func (FlatOff) KindName() string { return constants.DiscountKindFlat }

// KindName 类型名称
func (FreeShipping) KindName() string { return constants.DiscountKindFreeShipping }

// kindValue 优惠数值快照（百分比为费率，立减为金额，免运费为 0）
func kindValue(kind DiscountKind) decimal.Decimal {
	switch k := kind.(type) {
	case PercentageOff:
		return k.Rate
	case FlatOff:
		return k.Amount
	case FreeShipping:
		return decimal.Zero
	default:
		panic(fmt.Sprintf("unhandled discount kind %T", kind))
	}
}

// ScopeTier 适用范围层级
type ScopeTier int

const (
	ScopeProduct ScopeTier = iota + 1
	ScopeCategory
	ScopeStore
	ScopeShipping
)

// DiscountRule 规范化后的优惠规则，选择器与计算器只读取该结构
type DiscountRule struct {
	ID                        uint
	Name                      string
	Authority                 Authority
	SellerID                  uint
	Coupon                    bool
	Code                      string
	Kind                      DiscountKind
	Scope                     ScopeTier
	ProductIDs                map[uint]struct{}
	CategoryIDs               map[uint]struct{}
	MaxDiscount               *decimal.Decimal
	MinSubtotal               decimal.Decimal
	StackableWithFreeShipping bool
	Priority                  int
	StartsAt                  *time.Time
	EndsAt                    *time.Time
	UsageLimitTotal           int
	PerUserLimit              int
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// IsFreeShipping 是否为运费类优惠
func (r *DiscountRule) IsFreeShipping() bool {
	if r == nil {
		return false
	}
	if _, ok := r.Kind.(FreeShipping); ok {
		return true
	}
	return r.Scope == ScopeShipping
}

// EligibleFor 门槛判断
func (r *DiscountRule) EligibleFor(subtotal decimal.Decimal) bool {
	return r != nil && subtotal.GreaterThanOrEqual(r.MinSubtotal)
}

// matchesLine 范围是否命中购物车行，需要目标的范围在目标为空时不命中任何行
func (r *DiscountRule) matchesLine(line Line) bool {
	switch r.Scope {
	case ScopeProduct:
		_, ok := r.ProductIDs[line.ProductID]
		return ok
	case ScopeCategory:
		_, ok := r.CategoryIDs[line.CategoryID]
		return ok
	case ScopeStore, ScopeShipping:
		if r.Authority == AuthoritySeller {
			return r.SellerID == line.SellerID
		}
		return true
	default:
		return false
	}
}

// Applied 生成优惠引用快照
func (r *DiscountRule) Applied() *AppliedDiscount {
	if r == nil {
		return nil
	}
	return &AppliedDiscount{
		ID:        r.ID,
		Name:      r.Name,
		Authority: r.Authority,
		Kind:      r.Kind.KindName(),
		Value:     models.NewMoneyFromDecimal(kindValue(r.Kind)),
		Code:      r.Code,
	}
}

// canonicalizeDiscount 将数据库记录（含历史字段）转为规范规则
func canonicalizeDiscount(record models.Discount) (*DiscountRule, error) {
	rule := &DiscountRule{
		ID:                        record.ID,
		Name:                      strings.TrimSpace(record.Name),
		MinSubtotal:               record.MinCartSubtotal.Decimal,
		StackableWithFreeShipping: record.StackableWithFreeShipping,
		Priority:                  record.Priority,
		StartsAt:                  firstTime(record.StartsAt, record.ValidFrom),
		EndsAt:                    firstTime(record.EndsAt, record.ValidUntil),
		UsageLimitTotal:           positiveLimit(record.UsageLimitTotal),
		PerUserLimit:              positiveLimit(record.PerUserLimit),
		CreatedAt:                 record.CreatedAt,
		UpdatedAt:                 record.UpdatedAt,
	}

	switch strings.ToLower(strings.TrimSpace(record.Authority)) {
	case constants.DiscountAuthorityPlatform:
		rule.Authority = AuthorityPlatform
	case constants.DiscountAuthoritySeller:
		rule.Authority = AuthoritySeller
		if record.SellerID == nil || *record.SellerID == 0 {
			return nil, fmt.Errorf("seller discount %d without seller", record.ID)
		}
		rule.SellerID = *record.SellerID
	default:
		return nil, fmt.Errorf("discount %d has unknown authority %q", record.ID, record.Authority)
	}

	switch strings.ToLower(strings.TrimSpace(record.CodeType)) {
	case constants.DiscountCodeTypeCoupon:
		rule.Coupon = true
		rule.Code = NormalizeCouponCode(record.Code)
		if rule.Code == "" {
			return nil, fmt.Errorf("coupon %d without code", record.ID)
		}
	case "", constants.DiscountCodeTypeCampaign:
	default:
		return nil, fmt.Errorf("discount %d has unknown code type %q", record.ID, record.CodeType)
	}

	value := record.Value.Decimal
	switch strings.ToLower(strings.TrimSpace(record.Kind)) {
	case constants.DiscountKindPercentage, "percent":
		if !value.IsPositive() {
			return nil, fmt.Errorf("discount %d has non-positive rate", record.ID)
		}
		rule.Kind = PercentageOff{Rate: value}
	case constants.DiscountKindFlat, "fixed":
		if !value.IsPositive() {
			return nil, fmt.Errorf("discount %d has non-positive amount", record.ID)
		}
		rule.Kind = FlatOff{Amount: value}
	case constants.DiscountKindFreeShipping:
		rule.Kind = FreeShipping{}
	default:
		return nil, fmt.Errorf("discount %d has unknown kind %q", record.ID, record.Kind)
	}

	if record.MaxDiscount != nil && record.MaxDiscount.Decimal.IsPositive() {
		capped := record.MaxDiscount.Decimal
		rule.MaxDiscount = &capped
	}

	var err error
	if rule.ProductIDs, err = decodeScopeIDs(record.ProductIDs); err != nil {
		return nil, fmt.Errorf("discount %d product_ids: %w", record.ID, err)
	}
	if rule.CategoryIDs, err = decodeScopeIDs(record.CategoryIDs); err != nil {
		return nil, fmt.Errorf("discount %d category_ids: %w", record.ID, err)
	}
	scope, err := resolveScope(record, rule)
	if err != nil {
		return nil, err
	}
	rule.Scope = scope
	return rule, nil
}

// resolveScope 解析适用范围；显式商品清单始终按商品范围处理
func resolveScope(record models.Discount, rule *DiscountRule) (ScopeTier, error) {
	declared := strings.ToLower(strings.TrimSpace(record.ScopeType))
	if declared == constants.ScopeTypeShipping {
		return ScopeShipping, nil
	}
	if len(rule.ProductIDs) > 0 {
		return ScopeProduct, nil
	}
	switch declared {
	case constants.ScopeTypeProduct:
		return ScopeProduct, nil
	case constants.ScopeTypeCategory:
		return ScopeCategory, nil
	case constants.ScopeTypeStore:
		return ScopeStore, nil
	case "":
		if len(rule.CategoryIDs) > 0 {
			return ScopeCategory, nil
		}
		if _, ok := rule.Kind.(FreeShipping); ok {
			return ScopeShipping, nil
		}
		return ScopeStore, nil
	}
	for _, alias := range constants.LegacyStoreScopeAliases {
		if declared == alias {
			return ScopeStore, nil
		}
	}
	return 0, fmt.Errorf("discount %d has unknown scope %q", record.ID, record.ScopeType)
}

// decodeScopeIDs 解析 JSON 数组形式的ID集合（数字或数字字符串）；
// 非空清单无法解析或不含任何有效ID时报错，由目录读取方丢弃该规则
func decodeScopeIDs(raw string) (map[uint]struct{}, error) {
	result := map[uint]struct{}{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return result, nil
	}
	var values []interface{}
	if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
		return nil, fmt.Errorf("malformed id list: %w", err)
	}
	for _, value := range values {
		if id, ok := parseID(value); ok {
			result[id] = struct{}{}
		}
	}
	if len(values) > 0 && len(result) == 0 {
		return nil, fmt.Errorf("id list %s has no usable ids", trimmed)
	}
	return result, nil
}

// discountRecordActive 记录启用状态与有效期判断（缓存命中后复核使用）
func discountRecordActive(record models.Discount, now time.Time) bool {
	if record.Disabled {
		return false
	}
	if record.IsActive != nil {
		if !*record.IsActive {
			return false
		}
	} else if !strings.EqualFold(strings.TrimSpace(record.Status), constants.DiscountStatusActive) {
		return false
	}
	if start := firstTime(record.StartsAt, record.ValidFrom); start != nil && now.Before(*start) {
		return false
	}
	if end := firstTime(record.EndsAt, record.ValidUntil); end != nil && now.After(*end) {
		return false
	}
	return true
}

func firstTime(values ...*time.Time) *time.Time {
	for _, value := range values {
		if value != nil && !value.IsZero() {
			return value
		}
	}
	return nil
}

func positiveLimit(limit *int) int {
	if limit == nil || *limit <= 0 {
		return 0
	}
	return *limit
}

// parseID 解析正整数ID
func parseID(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case float64:
		if v < 1 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint(v), true
	case int:
		if v < 1 {
			return 0, false
		}
		return uint(v), true
	case int64:
		if v < 1 {
			return 0, false
		}
		return uint(v), true
	case uint:
		return v, v > 0
	case json.Number:
		return parseID(v.String())
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}
