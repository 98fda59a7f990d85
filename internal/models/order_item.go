package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表（保存店铺/平台优惠快照，供佣金与结算使用）
type OrderItem struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                                   // 主键
	OrderID               uint           `gorm:"index;not null" json:"order_id"`                                         // 订单ID
	ProductID             uint           `gorm:"index;not null" json:"product_id"`                                       // 商品ID
	SellerID              uint           `gorm:"index;not null" json:"seller_id"`                                        // 店铺ID
	CategoryID            uint           `gorm:"index" json:"category_id"`                                               // 分类ID
	UnitPrice             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`                // 单价
	Quantity              int            `gorm:"not null" json:"quantity"`                                               // 数量
	BaseAmount            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`               // 小计
	SellerDiscount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"seller_discount_amount"`    // 店铺优惠
	PlatformDiscount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"platform_discount_amount"`  // 平台优惠分摊
	FinalAmount           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`              // 实付小计
	SellerDiscountID      *uint          `gorm:"index" json:"seller_discount_id,omitempty"`                              // 店铺优惠ID
	SellerDiscountKind    string         `gorm:"type:varchar(20)" json:"seller_discount_kind,omitempty"`                 // 店铺优惠类型快照
	SellerDiscountValue   *Money         `gorm:"type:decimal(20,2)" json:"seller_discount_value,omitempty"`              // 店铺优惠数值快照
	PlatformDiscountID    *uint          `gorm:"index" json:"platform_discount_id,omitempty"`                            // 平台优惠ID
	PlatformDiscountKind  string         `gorm:"type:varchar(20)" json:"platform_discount_kind,omitempty"`               // 平台优惠类型快照
	PlatformDiscountValue *Money         `gorm:"type:decimal(20,2)" json:"platform_discount_value,omitempty"`            // 平台优惠数值快照
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                                                // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                                         // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
