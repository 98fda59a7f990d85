package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
)

// DiscountAdminService 优惠规则维护
type DiscountAdminService struct {
	discountRepo repository.DiscountRepository
}

// NewDiscountAdminService 创建优惠维护服务
func NewDiscountAdminService(discountRepo repository.DiscountRepository) *DiscountAdminService {
	return &DiscountAdminService{discountRepo: discountRepo}
}

// CreateDiscountInput 创建优惠参数
type CreateDiscountInput struct {
	Name                      string        `json:"name"`
	Authority                 string        `json:"authority" binding:"required"`
	SellerID                  uint          `json:"seller_id"`
	CodeType                  string        `json:"code_type"`
	Code                      string        `json:"code"`
	Kind                      string        `json:"kind" binding:"required"`
	ScopeType                 string        `json:"scope_type"`
	ProductIDs                []uint        `json:"product_ids"`
	CategoryIDs               []uint        `json:"category_ids"`
	Value                     models.Money  `json:"value"`
	MaxDiscount               *models.Money `json:"max_discount"`
	MinCartSubtotal           models.Money  `json:"min_cart_subtotal"`
	StackableWithFreeShipping bool          `json:"stackable_with_free_shipping"`
	Priority                  int           `json:"priority"`
	UsageLimitTotal           *int          `json:"usage_limit_total"`
	PerUserLimit              *int          `json:"per_user_limit"`
	StartsAt                  *time.Time    `json:"starts_at"`
	EndsAt                    *time.Time    `json:"ends_at"`
}

// Create 校验并保存优惠规则，无法规范化的配置直接拒绝
func (s *DiscountAdminService) Create(ctx context.Context, input CreateDiscountInput) (*models.Discount, error) {
	active := true
	record := &models.Discount{
		Name:                      strings.TrimSpace(input.Name),
		Authority:                 strings.ToLower(strings.TrimSpace(input.Authority)),
		CodeType:                  strings.ToLower(strings.TrimSpace(input.CodeType)),
		Kind:                      strings.ToLower(strings.TrimSpace(input.Kind)),
		ScopeType:                 strings.ToLower(strings.TrimSpace(input.ScopeType)),
		ProductIDs:                encodeScopeIDs(input.ProductIDs),
		CategoryIDs:               encodeScopeIDs(input.CategoryIDs),
		Value:                     input.Value,
		MaxDiscount:               input.MaxDiscount,
		MinCartSubtotal:           input.MinCartSubtotal,
		StackableWithFreeShipping: input.StackableWithFreeShipping,
		Priority:                  input.Priority,
		UsageLimitTotal:           input.UsageLimitTotal,
		PerUserLimit:              input.PerUserLimit,
		StartsAt:                  input.StartsAt,
		EndsAt:                    input.EndsAt,
		IsActive:                  &active,
		Status:                    constants.DiscountStatusActive,
	}
	if record.CodeType == "" {
		record.CodeType = constants.DiscountCodeTypeCampaign
	}
	if input.SellerID > 0 {
		sellerID := input.SellerID
		record.SellerID = &sellerID
	}
	if record.CodeType == constants.DiscountCodeTypeCoupon {
		code, err := ValidateCouponCode(input.Code)
		if err != nil {
			return nil, err
		}
		if record.Authority != constants.DiscountAuthorityPlatform {
			return nil, fmt.Errorf("%w: coupon must be platform funded", ErrDiscountInvalid)
		}
		record.Code = code
	}
	if record.StartsAt != nil && record.EndsAt != nil && record.EndsAt.Before(*record.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at before starts_at", ErrDiscountInvalid)
	}
	if _, err := canonicalizeDiscount(*record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscountInvalid, err)
	}

	if err := s.discountRepo.Create(record); err != nil {
		return nil, err
	}
	InvalidateDiscountCatalog(ctx)
	logger.Infow("discount_created",
		"discount_id", record.ID,
		"authority", record.Authority,
		"kind", record.Kind,
		"code", record.Code,
	)
	return record, nil
}

func encodeScopeIDs(ids []uint) string {
	if len(ids) == 0 {
		return ""
	}
	body, err := json.Marshal(ids)
	if err != nil {
		return ""
	}
	return string(body)
}
