package models

import (
	"time"

	"gorm.io/gorm"
)

// Discount 优惠规则（店铺优惠 / 平台优惠券 / 平台活动）
type Discount struct {
	ID                        uint           `gorm:"primarykey" json:"id"`                                                 // 主键
	Name                      string         `gorm:"not null;default:''" json:"name"`                                      // 名称
	Authority                 string         `gorm:"type:varchar(20);not null;index" json:"authority"`                     // 出资方（platform/seller）
	SellerID                  *uint          `gorm:"index" json:"seller_id,omitempty"`                                     // 店铺ID（店铺优惠必填）
	CodeType                  string         `gorm:"type:varchar(20);not null;default:'campaign'" json:"code_type"`        // 领取方式（coupon/campaign）
	Code                      string         `gorm:"type:varchar(64);index" json:"code,omitempty"`                         // 优惠码（仅优惠券）
	Kind                      string         `gorm:"type:varchar(20);not null" json:"kind"`                                // 类型（percentage/flat/free_shipping）
	ScopeType                 string         `gorm:"type:varchar(20)" json:"scope_type"`                                   // 适用范围（product/category/store/shipping）
	ProductIDs                string         `gorm:"type:text" json:"product_ids"`                                         // 适用商品ID集合（JSON数组）
	CategoryIDs               string         `gorm:"type:text" json:"category_ids"`                                        // 适用分类ID集合（JSON数组）
	Value                     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"value"`                   // 数值（百分比或固定金额）
	MaxDiscount               *Money         `gorm:"type:decimal(20,2)" json:"max_discount,omitempty"`                     // 最大优惠金额（为空不限制）
	MinCartSubtotal           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_cart_subtotal"`       // 使用门槛
	StackableWithFreeShipping bool           `gorm:"not null;default:false" json:"stackable_with_free_shipping"`           // 是否可与包邮叠加
	Priority                  int            `gorm:"not null;default:0;index" json:"priority"`                             // 优先级（越大越优先）
	UsageLimitTotal           *int           `json:"usage_limit_total,omitempty"`                                          // 总使用上限（为空不限制）
	UsedCount                 int            `gorm:"not null;default:0" json:"used_count"`                                 // 已使用次数
	PerUserLimit              *int           `json:"per_user_limit,omitempty"`                                             // 每人使用上限（为空不限制）
	StartsAt                  *time.Time     `gorm:"index" json:"starts_at"`                                               // 生效时间
	EndsAt                    *time.Time     `gorm:"index" json:"ends_at"`                                                 // 失效时间
	ValidFrom                 *time.Time     `json:"valid_from,omitempty"`                                                 // 旧版生效时间
	ValidUntil                *time.Time     `json:"valid_until,omitempty"`                                                // 旧版失效时间
	IsActive                  *bool          `json:"is_active,omitempty"`                                                  // 是否启用（为空时读取 status）
	Status                    string         `gorm:"type:varchar(20);not null;default:''" json:"status,omitempty"`         // 旧版启用状态
	Disabled                  bool           `gorm:"not null;default:false;index" json:"disabled"`                         // 是否停用
	CreatedAt                 time.Time      `gorm:"index" json:"created_at"`                                              // 创建时间
	UpdatedAt                 time.Time      `gorm:"index" json:"updated_at"`                                              // 更新时间
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"-"`                                                       // 软删除时间
}

// TableName 指定表名
func (Discount) TableName() string {
	return "discounts"
}
