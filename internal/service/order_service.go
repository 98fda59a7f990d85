package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单组装：定价、券预占与订单落库在同一事务内完成
type OrderService struct {
	db                 *gorm.DB
	orderRepo          repository.OrderRepository
	pricingService     *PricingService
	reservationService *CouponReservationService
}

// NewOrderService 创建订单服务
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	pricingService *PricingService,
	reservationService *CouponReservationService,
) *OrderService {
	return &OrderService{
		db:                 db,
		orderRepo:          orderRepo,
		pricingService:     pricingService,
		reservationService: reservationService,
	}
}

// CreateOrderInput 创建订单参数
type CreateOrderInput struct {
	CustomerID     uint
	OrderReference string
	Lines          []models.JSON
	CouponCode     string
	ShippingFee    models.Money
}

// CreateOrderResult 创建订单结果
type CreateOrderResult struct {
	Order       *models.Order       `json:"order"`
	Pricing     *PricingResult      `json:"pricing,omitempty"`
	Reservation *ReservationOutcome `json:"reservation,omitempty"`
	Replayed    bool                `json:"replayed"`
}

// PreviewOrder 下单前预览（只读报价）
func (s *OrderService) PreviewOrder(ctx context.Context, input CreateOrderInput) (*PricingResult, error) {
	return s.pricingService.ComputePricing(ctx, PricingInput{
		Lines:       input.Lines,
		CouponCode:  input.CouponCode,
		ShippingFee: input.ShippingFee,
	})
}

// CreateOrder 创建订单；同一订单引用重复提交时返回已创建的订单
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	orderReference := strings.TrimSpace(input.OrderReference)
	if orderReference == "" {
		return nil, ErrOrderReferenceMissing
	}
	if len(input.Lines) == 0 {
		return nil, ErrInvalidOrderItem
	}

	var result *CreateOrderResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		existing, err := orderRepo.GetByOrderNo(orderReference)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
		}
		if existing != nil {
			if existing.CustomerID != input.CustomerID {
				return fmt.Errorf("%w: order reference already used", ErrOrderCreateFailed)
			}
			result = &CreateOrderResult{Order: existing, Replayed: true}
			return nil
		}

		pricing, err := s.pricingService.priceInTx(ctx, tx, PricingInput{
			Lines:       input.Lines,
			CouponCode:  input.CouponCode,
			ShippingFee: input.ShippingFee,
		})
		if err != nil {
			return err
		}
		if len(pricing.Lines) == 0 {
			return ErrInvalidOrderItem
		}

		var reservation *ReservationOutcome
		if coupon := pricing.coupon; coupon != nil {
			reservation, err = s.reservationService.Reserve(ctx, tx, ReserveCouponInput{
				Code:           coupon.Code,
				CustomerID:     input.CustomerID,
				OrderReference: orderReference,
				CartSubtotal:   pricing.Totals.Subtotal,
				DiscountID:     coupon.ID,
			})
			if err != nil {
				return err
			}
		}

		order, items := buildOrder(input.CustomerID, orderReference, pricing, reservation)
		if err := orderRepo.Create(order, items); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
		}
		result = &CreateOrderResult{Order: order, Pricing: pricing, Reservation: reservation}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			logger.Errorw("order_create_failed",
				"customer_id", input.CustomerID,
				"order_reference", orderReference,
				"error", err,
			)
		}
		return nil, err
	}
	if result.Replayed {
		logger.Infow("order_create_replayed", "order_no", orderReference, "customer_id", input.CustomerID)
	} else {
		logger.Infow("order_created",
			"order_id", result.Order.ID,
			"order_no", orderReference,
			"customer_id", input.CustomerID,
			"total_amount", result.Order.TotalAmount.String(),
		)
	}
	return result, nil
}

// GetOrder 获取用户订单
func (s *OrderService) GetOrder(ctx context.Context, customerID uint, orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.WithTx(s.db.WithContext(ctx)).GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || order.CustomerID != customerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 用户订单列表
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.WithTx(s.db.WithContext(ctx)).ListByCustomer(filter)
}

// buildOrder 组装订单与订单项，券快照取自预占结果
func buildOrder(customerID uint, orderReference string, pricing *PricingResult, reservation *ReservationOutcome) (*models.Order, []models.OrderItem) {
	totals := pricing.Totals
	order := &models.Order{
		OrderNo:                orderReference,
		CustomerID:             customerID,
		Status:                 constants.OrderStatusPendingPayment,
		Currency:               pricing.Currency,
		SubtotalAmount:         totals.Subtotal,
		SellerDiscountAmount:   totals.SellerDiscountTotal,
		PlatformDiscountAmount: totals.PlatformDiscountTotal,
		DiscountedSubtotal:     totals.DiscountedSubtotal,
		ShippingFee:            totals.ShippingFee,
		ShippingDiscountAmount: totals.ShippingDiscount,
		TotalAmount:            totals.GrandTotal,
	}
	if pricing.PriceDiscount != nil && totals.PlatformDiscountTotal.IsPositive() {
		order.PlatformDiscountID = uintPtr(pricing.PriceDiscount.ID)
	}
	if pricing.ShippingDiscount != nil {
		order.ShippingDiscountID = uintPtr(pricing.ShippingDiscount.ID)
	}
	if reservation != nil {
		order.CouponID = uintPtr(reservation.DiscountID)
		order.CouponCode = reservation.Code
		order.CouponKind = reservation.Kind
		order.CouponValue = models.MoneyPtr(reservation.Value)
	}

	items := make([]models.OrderItem, 0, len(pricing.Lines))
	for _, line := range pricing.Lines {
		item := models.OrderItem{
			ProductID:        line.ProductID,
			SellerID:         line.SellerID,
			CategoryID:       line.CategoryID,
			UnitPrice:        line.UnitPrice,
			Quantity:         line.Quantity,
			BaseAmount:       line.Base,
			SellerDiscount:   line.SellerDiscount,
			PlatformDiscount: line.PlatformDiscount,
			FinalAmount:      line.Final,
		}
		if applied := line.SellerApplied; applied != nil {
			item.SellerDiscountID = uintPtr(applied.ID)
			item.SellerDiscountKind = applied.Kind
			item.SellerDiscountValue = models.MoneyPtr(applied.Value)
		}
		if applied := line.PlatformApplied; applied != nil {
			item.PlatformDiscountID = uintPtr(applied.ID)
			item.PlatformDiscountKind = applied.Kind
			item.PlatformDiscountValue = models.MoneyPtr(applied.Value)
		}
		items = append(items, item)
	}
	return order, items
}

func uintPtr(value uint) *uint {
	return &value
}

// isBusinessError 业务规则拒绝，无需按系统错误记录
func isBusinessError(err error) bool {
	for _, target := range []error{
		ErrMissingSellerMapping,
		ErrInvalidCouponFormat,
		ErrCouponNotFound,
		ErrCouponNotEligible,
		ErrPerUserLimitReached,
		ErrCouponCustomerRequired,
		ErrInvalidOrderItem,
		ErrOrderReferenceMissing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
