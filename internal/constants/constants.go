package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
)

// 优惠出资方常量
const (
	DiscountAuthorityPlatform = "platform"
	DiscountAuthoritySeller   = "seller"
)

// 优惠领取方式常量
const (
	DiscountCodeTypeCoupon   = "coupon"
	DiscountCodeTypeCampaign = "campaign"
)

// 优惠类型常量
const (
	DiscountKindPercentage   = "percentage"
	DiscountKindFlat         = "flat"
	DiscountKindFreeShipping = "free_shipping"
)

// 适用范围常量
const (
	ScopeTypeProduct  = "product"
	ScopeTypeCategory = "category"
	ScopeTypeStore    = "store"
	ScopeTypeShipping = "shipping"
)

// 历史数据中的店铺/全场范围别名
var LegacyStoreScopeAliases = []string{"cart", "all", "store_wide", "storewide", "global"}

// 历史数据中的启用状态值
const (
	DiscountStatusActive = "active"
)

// 优惠码格式
const (
	CouponCodeMinLength = 3
	CouponCodeMaxLength = 64
)

// LineQuantityMax 单行商品数量上限（int32 范围内）
const LineQuantityMax = 1<<31 - 1

// 报价告警码
const (
	PricingWarningMissingSeller     = "missing_seller_mapping"
	PricingWarningCouponNotFound    = "coupon_not_found"
	PricingWarningCouponNotEligible = "coupon_not_eligible"
	PricingWarningProductNotFound   = "product_not_found"
)

// 券预占结果
const (
	ReservationOutcomeReserved        = "reserved"
	ReservationOutcomeReplayed        = "replayed"
	ReservationOutcomeNotFound        = "not_found"
	ReservationOutcomeNotEligible     = "not_eligible"
	ReservationOutcomePerUserLimit    = "per_user_limit"
	ReservationOutcomeCustomerMissing = "customer_missing"
	ReservationOutcomeError           = "error"
)

// 队列常量
const (
	QueueDefault          = "default"
	QueueCritical         = "critical"
	TaskCouponUsageAudit  = "coupon:usage_audit"
	TaskCouponAuditSweep  = "coupon:usage_audit_sweep"
	CouponAuditMaxRetries = 3
)

// 缓存默认配置常量
const (
	RedisPrefixDefault              = "bz"
	CacheKeyDiscountCatalog         = "pricing:catalog"
	CatalogCacheSecondsDefault      = 15
	ReconcileIntervalSecondsDefault = 300
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

// 请求头
const (
	HeaderCustomerID     = "X-Customer-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAdminToken     = "X-Admin-Token"
)
