package models

import "time"

// CouponRedemption 用户维度的优惠券使用计数
type CouponRedemption struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                       // 主键
	DiscountID uint      `gorm:"not null;uniqueIndex:idx_coupon_redemption_customer" json:"discount_id"`     // 优惠ID
	CustomerID uint      `gorm:"not null;uniqueIndex:idx_coupon_redemption_customer" json:"customer_id"`     // 用户ID
	UsedCount  int       `gorm:"not null;default:0" json:"used_count"`                                       // 已使用次数
	CreatedAt  time.Time `json:"created_at"`                                                                 // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                                                 // 更新时间
}

// TableName 指定表名
func (CouponRedemption) TableName() string {
	return "coupon_redemptions"
}

// CouponRedemptionEvent 优惠券预占幂等记录（同一订单仅允许一条）
type CouponRedemptionEvent struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                                  // 主键
	DiscountID     uint      `gorm:"not null;uniqueIndex:idx_coupon_redemption_event_order" json:"discount_id"`             // 优惠ID
	CustomerID     uint      `gorm:"not null;uniqueIndex:idx_coupon_redemption_event_order" json:"customer_id"`             // 用户ID
	OrderReference string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_coupon_redemption_event_order" json:"order_reference"` // 订单引用
	Code           string    `gorm:"type:varchar(64);not null" json:"code"`                                                 // 优惠码快照
	Kind           string    `gorm:"type:varchar(20);not null" json:"kind"`                                                 // 类型快照
	Value          Money     `gorm:"type:decimal(20,2);not null;default:0" json:"value"`                                    // 数值快照
	MaxDiscount    *Money    `gorm:"type:decimal(20,2)" json:"max_discount,omitempty"`                                      // 最大优惠快照
	CartSubtotal   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"cart_subtotal"`                            // 预占时的购物车小计
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                                               // 预占时间
}

// TableName 指定表名
func (CouponRedemptionEvent) TableName() string {
	return "coupon_redemption_events"
}
