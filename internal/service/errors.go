package service

import "errors"

// 定价与券预占相关错误
var (
	ErrMissingSellerMapping   = errors.New("商品缺少店铺归属")
	ErrInvalidCouponFormat    = errors.New("优惠码格式不正确")
	ErrCouponNotFound         = errors.New("优惠码不存在")
	ErrCouponNotEligible      = errors.New("优惠码不满足使用条件")
	ErrPerUserLimitReached    = errors.New("优惠码已达到个人使用上限")
	ErrCouponCustomerRequired = errors.New("使用优惠码需要登录")
	ErrUnbalancedAllocation   = errors.New("优惠分摊金额不平衡")
)

// 订单相关错误
var (
	ErrInvalidOrderItem      = errors.New("订单商品无效")
	ErrOrderReferenceMissing = errors.New("订单引用不能为空")
	ErrOrderCreateFailed     = errors.New("订单创建失败")
	ErrOrderNotFound         = errors.New("订单不存在")
)

// 优惠管理相关错误
var (
	ErrDiscountInvalid = errors.New("优惠规则配置无效")
)
