package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                     uint           `gorm:"primarykey" json:"id"`                                                      // 主键
	OrderNo                string         `gorm:"uniqueIndex;not null" json:"order_no"`                                      // 订单引用（幂等键）
	CustomerID             uint           `gorm:"index;not null" json:"customer_id"`                                         // 用户ID
	Status                 string         `gorm:"index;not null" json:"status"`                                              // 订单状态
	Currency               string         `gorm:"not null" json:"currency"`                                                  // 币种
	SubtotalAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"`              // 原始小计
	SellerDiscountAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"seller_discount_amount"`       // 店铺优惠合计
	PlatformDiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"platform_discount_amount"`     // 平台优惠合计
	DiscountedSubtotal     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discounted_subtotal"`          // 优惠后小计
	ShippingFee            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"`                 // 运费
	ShippingDiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_discount_amount"`     // 运费优惠
	TotalAmount            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`                 // 应付金额
	CouponID               *uint          `gorm:"index" json:"coupon_id,omitempty"`                                          // 优惠券ID
	CouponCode             string         `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`                             // 优惠码快照
	CouponKind             string         `gorm:"type:varchar(20)" json:"coupon_kind,omitempty"`                             // 优惠券类型快照
	CouponValue            *Money         `gorm:"type:decimal(20,2)" json:"coupon_value,omitempty"`                          // 优惠券数值快照
	PlatformDiscountID     *uint          `gorm:"index" json:"platform_discount_id,omitempty"`                               // 平台价格优惠ID
	ShippingDiscountID     *uint          `gorm:"index" json:"shipping_discount_id,omitempty"`                               // 包邮优惠ID
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt              time.Time      `gorm:"index" json:"updated_at"`                                                   // 更新时间
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`                                                            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
