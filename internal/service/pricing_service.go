package service

import (
	"context"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"gorm.io/gorm"
)

// PricingService 报价与下单共用的定价入口
type PricingService struct {
	productRepo     repository.ProductRepository
	discountRepo    repository.DiscountRepository
	currency        string
	catalogCacheTTL time.Duration
	now             func() time.Time
}

// PricingOptions 定价配置
type PricingOptions struct {
	Currency        string
	CatalogCacheTTL time.Duration
}

// NewPricingService 创建定价服务
func NewPricingService(productRepo repository.ProductRepository, discountRepo repository.DiscountRepository, options PricingOptions) *PricingService {
	currency := options.Currency
	if currency == "" {
		currency = constants.SiteCurrencyDefault
	}
	return &PricingService{
		productRepo:     productRepo,
		discountRepo:    discountRepo,
		currency:        currency,
		catalogCacheTTL: options.CatalogCacheTTL,
		now:             time.Now,
	}
}

// PricingInput 定价参数
type PricingInput struct {
	Lines       []models.JSON `json:"lines"`
	CouponCode  string        `json:"coupon_code"`
	ShippingFee models.Money  `json:"shipping_fee"`
}

// ComputePricing 只读报价：无店铺归属的行与无效优惠码以告警返回，可重复调用
func (s *PricingService) ComputePricing(ctx context.Context, input PricingInput) (*PricingResult, error) {
	result, err := s.price(ctx, nil, input, false)
	if err != nil {
		metrics.PricingQuotesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PricingQuotesTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// priceInTx 下单定价：读取事务内数据，缺少店铺归属与优惠码不可用直接报错
func (s *PricingService) priceInTx(ctx context.Context, tx *gorm.DB, input PricingInput) (*PricingResult, error) {
	return s.price(ctx, tx, input, true)
}

func (s *PricingService) price(ctx context.Context, tx *gorm.DB, input PricingInput, strict bool) (*PricingResult, error) {
	code, err := ValidateCouponCode(input.CouponCode)
	if err != nil {
		return nil, err
	}

	productRepo := s.productRepo
	discountRepo := s.discountRepo
	if tx != nil {
		bound := tx.WithContext(ctx)
		productRepo = productRepo.WithTx(bound)
		discountRepo = discountRepo.WithTx(bound)
	}

	cart, err := NewLineNormalizer(productRepo).Normalize(input.Lines, strict)
	if err != nil {
		return nil, err
	}

	sellerIDs := make([]uint, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		sellerIDs = append(sellerIDs, line.SellerID)
	}
	catalog := NewDiscountCatalog(discountRepo, s.catalogCacheTTL)
	rules, err := catalog.Load(ctx, CatalogQuery{
		SellerIDs: sellerIDs,
		Now:       s.now(),
		UseCache:  tx == nil,
	})
	if err != nil {
		return nil, err
	}

	selection := SelectDiscounts(cart.Lines, rules, code)
	result, err := ApplyDiscounts(cart.Lines, selection, input.ShippingFee.Decimal)
	if err != nil {
		return nil, err
	}
	result.Currency = s.currency
	result.Warnings = cart.Warnings

	if code != "" && result.AppliedCoupon == nil {
		couponErr := ErrCouponNotEligible
		warning := constants.PricingWarningCouponNotEligible
		if selection.CouponStatus == CouponUnknown {
			couponErr = ErrCouponNotFound
			warning = constants.PricingWarningCouponNotFound
		}
		if strict {
			return nil, couponErr
		}
		result.Warnings = append(result.Warnings, PricingWarning{Code: warning, Message: couponErr.Error()})
	}
	return result, nil
}
